package clplan

import (
	"fmt"
	"slices"
	"strings"

	"github.com/crewlinker/clnet/clid"
	"github.com/crewlinker/clnet/cltopo"
	"github.com/samber/lo"
)

// Action is what needs to happen to an entity.
type Action string

// actions in a plan.
const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionReplace Action = "replace"
	ActionDelete  Action = "delete"
)

// Change is a single required change. Previous is set for updates, replacements and deletions;
// Entity is set for everything but deletions.
type Change struct {
	Action   Action         `json:"action"`
	Entity   *cltopo.Entity `json:"entity,omitempty"`
	Previous *cltopo.Entity `json:"previous,omitempty"`
}

// Name returns the name of the entity that is changed.
func (c Change) Name() string {
	if c.Entity != nil {
		return c.Entity.Name
	}

	return c.Previous.Name
}

// Bundle returns the bundle index of the entity that is changed.
func (c Change) Bundle() int {
	if c.Entity != nil {
		return c.Entity.Bundle
	}

	return c.Previous.Bundle
}

func (c Change) String() string { return string(c.Action) + " " + c.Name() }

// BundleChange summarizes what happens to a whole zone bundle.
type BundleChange struct {
	Index  int    `json:"index"`
	Action Action `json:"action"`
}

// Plan lists the changes that make the materialized entities match the desired ones.
type Plan struct {
	Changes []Change `json:"changes"`
}

// IsEmpty returns whether nothing needs to change.
func (p *Plan) IsEmpty() bool { return len(p.Changes) == 0 }

// Of returns the changes with the action.
func (p *Plan) Of(action Action) []Change {
	return lo.Filter(p.Changes, func(c Change, _ int) bool { return c.Action == action })
}

// Bundles summarizes the plan per zone bundle, in index order. A bundle whose entities are only
// created is created, only deleted is deleted, only updated is updated and anything else is replaced.
func (p *Plan) Bundles() []BundleChange {
	per := lo.GroupBy(lo.Filter(p.Changes, func(c Change, _ int) bool {
		return c.Bundle() != cltopo.SharedIndex
	}), func(c Change) int { return c.Bundle() })

	idxs := lo.Keys(per)
	slices.Sort(idxs)

	return lo.Map(idxs, func(idx int, _ int) BundleChange {
		actions := lo.Uniq(lo.Map(per[idx], func(c Change, _ int) Action { return c.Action }))
		if len(actions) == 1 && actions[0] != ActionReplace {
			return BundleChange{Index: idx, Action: actions[0]}
		}

		return BundleChange{Index: idx, Action: ActionReplace}
	})
}

// String renders one change per line.
func (p *Plan) String() string {
	if p.IsEmpty() {
		return "no changes"
	}

	return strings.Join(lo.Map(p.Changes, func(c Change, _ int) string { return c.String() }), "\n")
}

// identity is what makes an entity the "same" entity across runs, even if it is replaced.
type identity struct {
	kind cltopo.Kind
	name string
}

func identityOf(e cltopo.Entity) identity { return identity{e.Kind, e.Name} }

// Compute the plan that turns the snapshot into the desired entities. Entities are matched by id; an
// entity whose id changed but whose kind and name remain is replaced. Unchanged input always yields an
// empty plan.
func Compute(desired []cltopo.Entity, snap Snapshot) (*Plan, error) {
	if err := checkUnique(desired); err != nil {
		return nil, fmt.Errorf("desired entities: %w", err)
	}

	if err := checkUnique(snap.Entities); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	byID := lo.KeyBy(snap.Entities, func(e cltopo.Entity) clid.ID { return e.ID })
	byIdentity := lo.KeyBy(snap.Entities, identityOf)
	wanted := lo.KeyBy(desired, func(e cltopo.Entity) clid.ID { return e.ID })
	replaced := map[clid.ID]bool{}
	plan := &Plan{}

	for _, ent := range desired {
		if prev, ok := byID[ent.ID]; ok {
			if prev.Fingerprint != ent.Fingerprint || prev.Name != ent.Name {
				plan.Changes = append(plan.Changes, Change{Action: ActionUpdate, Entity: &ent, Previous: &prev})
			}

			continue
		}

		if prev, ok := byIdentity[identityOf(ent)]; ok {
			if _, stillWanted := wanted[prev.ID]; !stillWanted {
				replaced[prev.ID] = true
				plan.Changes = append(plan.Changes, Change{Action: ActionReplace, Entity: &ent, Previous: &prev})

				continue
			}
		}

		plan.Changes = append(plan.Changes, Change{Action: ActionCreate, Entity: &ent})
	}

	for _, prev := range snap.Entities {
		if _, ok := wanted[prev.ID]; ok || replaced[prev.ID] {
			continue
		}

		plan.Changes = append(plan.Changes, Change{Action: ActionDelete, Previous: &prev})
	}

	return plan, nil
}

// checkUnique checks that no two entities share an id or a kind and name.
func checkUnique(ents []cltopo.Entity) error {
	if dups := lo.FindDuplicatesBy(ents, func(e cltopo.Entity) clid.ID { return e.ID }); len(dups) > 0 {
		return fmt.Errorf("%w: id %s", ErrDuplicateEntity, dups[0].ID)
	}

	if dups := lo.FindDuplicatesBy(ents, identityOf); len(dups) > 0 {
		return fmt.Errorf("%w: %s %q", ErrDuplicateEntity, dups[0].Kind, dups[0].Name)
	}

	return nil
}
