/*
Package transform implements the row transformer: the exclusion checks and the
spec-driven field mapping turning one raw record into one standardized record.
It is made externally accessible since it's useful for developing/testing
extractor/loader plug-ins.

Custom per-record logic that the declarative mapping cannot express can be
added via the pre-map hook function.
*/
package transform
