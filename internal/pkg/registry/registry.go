// Package registry holds the registered dataset specs of an API instance.
package registry

import (
	"fmt"
	"sync"

	"github.com/lycosystem/lyproxify/entity"
	"github.com/lycosystem/lyproxify/pkg/notify"
	"github.com/teltech/logger"
)

// DatasetRegistry is the in-memory store of registered dataset specs, keyed by
// dataset ID. A registered dataset is upgraded by registering a spec with a
// higher version number; re-registering the same or a lower version is
// rejected so that concurrent clients cannot silently downgrade a dataset.
//
// All methods are safe for concurrent use.
type DatasetRegistry struct {
	mu       sync.RWMutex
	specs    map[string]*entity.Spec
	notifier *notify.Notifier
}

func NewDatasetRegistry(notifyChan entity.NotifyChan, instance string, logging bool) *DatasetRegistry {
	var log *logger.Log
	if logging {
		log = logger.New()
	}
	return &DatasetRegistry{
		specs:    make(map[string]*entity.Spec),
		notifier: notify.New(notifyChan, log, 2, "registry", instance, ""),
	}
}

// Register validates the spec data and stores it, returning the dataset ID.
func (r *DatasetRegistry) Register(specData []byte) (string, error) {
	spec, err := entity.NewSpec(specData)
	if err != nil {
		return "", fmt.Errorf("invalid dataset spec: %v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.specs[spec.Id()]; ok {
		if spec.Version <= existing.Version {
			return "", fmt.Errorf(
				"dataset %s already registered with version %d (got version %d)",
				spec.Id(), existing.Version, spec.Version)
		}
		r.notifier.Notify(entity.NotifyLevelInfo, "upgrading dataset %s from version %d to %d",
			spec.Id(), existing.Version, spec.Version)
	}

	r.specs[spec.Id()] = spec
	return spec.Id(), nil
}

func (r *DatasetRegistry) Get(id string) (*entity.Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[id]
	if !ok {
		return nil, fmt.Errorf("dataset %s not registered", id)
	}
	return spec, nil
}

// GetAll returns a copy of the current spec map.
func (r *DatasetRegistry) GetAll() map[string]*entity.Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make(map[string]*entity.Spec, len(r.specs))
	for id, spec := range r.specs {
		specs[id] = spec
	}
	return specs
}

func (r *DatasetRegistry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.specs[id]
	return exists
}

func (r *DatasetRegistry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.specs[id]; !ok {
		return fmt.Errorf("dataset %s not registered", id)
	}
	delete(r.specs, id)
	return nil
}
