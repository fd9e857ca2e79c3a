// SPDX-License-Identifier: LGPL-3.0-or-later

package manifest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hyperwarm/daemon/models"
	"hyperwarm/hverr"
	"hyperwarm/logger"
)

// Store is the narrow slice of the persistence layer Apply needs. Declared
// on the consumer side so manifest tests can supply a fake instead of a
// real SQLite-backed store.
type Store interface {
	GetTemplateByName(ctx context.Context, name string) (*models.Template, error)
	CreateTemplate(ctx context.Context, t *models.Template) error
	GetPoolByName(ctx context.Context, name string) (*models.Pool, error)
	CreatePool(ctx context.Context, p *models.Pool) error
}

// ApplyResult reports what Apply did.
type ApplyResult struct {
	TemplatesCreated []string
	TemplatesSkipped []string
	PoolsCreated     []string
	PoolsSkipped     []string
}

// Apply registers every template and pool a manifest declares that does
// not already exist by name. An existing template or pool is left
// untouched and reported as skipped rather than updated in place; changing
// a live pool's shape is an operator decision (`pool provision`), not
// something a manifest reapply should do silently.
func Apply(ctx context.Context, st Store, m *PoolFleetManifest, log logger.Logger) (*ApplyResult, error) {
	if err := Validate(m); err != nil {
		return nil, err
	}
	result := &ApplyResult{}

	for _, t := range m.Templates {
		if _, err := st.GetTemplateByName(ctx, t.Name); err == nil {
			result.TemplatesSkipped = append(result.TemplatesSkipped, t.Name)
			continue
		} else if hverr.KindOf(err) != hverr.KindNotFound {
			return result, fmt.Errorf("look up template %q: %w", t.Name, err)
		}

		memMB := t.MemoryMB
		if memMB == 0 {
			memMB = 2048
		}
		cpus := t.CPUs
		if cpus == 0 {
			cpus = 2
		}
		tpl := &models.Template{
			ID:           uuid.NewString(),
			Name:         t.Name,
			DiskPath:     t.VHDX,
			DefaultMemMB: memMB,
			DefaultCPUs:  cpus,
			GPUEnabled:   t.GPUEnabled,
			CreatedAt:    time.Now(),
		}
		if err := st.CreateTemplate(ctx, tpl); err != nil {
			return result, fmt.Errorf("create template %q: %w", t.Name, err)
		}
		log.Info("applied template from manifest", "name", t.Name)
		result.TemplatesCreated = append(result.TemplatesCreated, t.Name)
	}

	for _, p := range m.Pools {
		if _, err := st.GetPoolByName(ctx, p.Name); err == nil {
			result.PoolsSkipped = append(result.PoolsSkipped, p.Name)
			continue
		} else if hverr.KindOf(err) != hverr.KindNotFound {
			return result, fmt.Errorf("look up pool %q: %w", p.Name, err)
		}

		tpl, err := st.GetTemplateByName(ctx, p.Template)
		if err != nil {
			return result, fmt.Errorf("pool %q references template %q: %w", p.Name, p.Template, err)
		}

		desired := p.DesiredCount
		if desired == 0 {
			desired = 1
		}
		warm := p.WarmCount
		if warm == 0 {
			warm = desired
		}
		pool := &models.Pool{
			ID:                    uuid.NewString(),
			Name:                  p.Name,
			TemplateID:            tpl.ID,
			DesiredCount:          desired,
			WarmCount:             warm,
			PerHostCap:            p.PerHostCap,
			DefaultResetOnRelease: p.DefaultResetOnRelease,
			CreatedAt:             time.Now(),
		}
		if !pool.Valid() {
			return result, hverr.New(hverr.KindUsage, "pool %q: warm_count (%d) must be between 0 and desired_count (%d)", p.Name, warm, desired)
		}
		if err := st.CreatePool(ctx, pool); err != nil {
			return result, fmt.Errorf("create pool %q: %w", p.Name, err)
		}
		log.Info("applied pool from manifest", "name", p.Name, "template", p.Template)
		result.PoolsCreated = append(result.PoolsCreated, p.Name)
	}

	return result, nil
}
