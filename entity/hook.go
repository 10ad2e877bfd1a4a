package entity

import "context"

type HookAction int

const (
	HookActionInvalid  HookAction = iota // default, not to be used
	HookActionProceed                    // continue processing of this record
	HookActionSkip                       // skip this record and take the next (not counted as excluded)
	HookActionError                      // fail the conversion run
	HookActionShutdown                   // stop the run early, keeping what was converted so far
)

// PreMapHookFunc is a client-provided function called by the run's Executor for
// each raw record before exclusion checks and field mapping. This way the
// client can amend or enrich records the declarative mapping cannot express,
// e.g. merging auxiliary per-patient data. The record is provided as a mutable
// argument to avoid requiring the client to return data even when untouched.
// The dataset spec governing the record is provided for context, since the
// same hook is called for every dataset converted through the API instance.
type PreMapHookFunc func(ctx context.Context, spec *Spec, record *Record) HookAction
