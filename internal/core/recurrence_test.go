package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/billspace/internal/models"
)

func TestAttachChild(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")
	bobby := f.register(t, "bobby")
	sp := f.space(t, alice, bobby)

	a := f.bill(t, alice, sp.ID, "10")
	b := f.bill(t, alice, sp.ID, "10")
	c := f.bill(t, alice, sp.ID, "10")

	t.Run("acyclic attach succeeds", func(t *testing.T) {
		got, err := f.svc.AttachChild(f.ctx, alice.ID, a.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ParentID)

		got, err = f.svc.AttachChild(f.ctx, alice.ID, b.ID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ParentID)

		children, err := f.svc.ListChildren(f.ctx, bobby.ID, a.ID)
		require.NoError(t, err)
		require.Len(t, children, 1)
		assert.Equal(t, b.ID, children[0].ID)
	})

	t.Run("self parent is a cycle", func(t *testing.T) {
		_, err := f.svc.AttachChild(f.ctx, alice.ID, a.ID, a.ID)
		assert.ErrorIs(t, err, ErrCycle)
		assert.ErrorIs(t, err, ErrInvariant)
	})

	t.Run("ancestor under descendant is a cycle", func(t *testing.T) {
		// a is the root of a -> b -> c
		_, err := f.svc.AttachChild(f.ctx, alice.ID, c.ID, a.ID)
		assert.ErrorIs(t, err, ErrCycle)

		root, err := f.svc.GetBill(f.ctx, alice.ID, a.ID)
		require.NoError(t, err)
		assert.Empty(t, root.ParentID)
	})

	t.Run("child with a parent is rejected", func(t *testing.T) {
		d := f.bill(t, alice, sp.ID, "10")
		_, err := f.svc.AttachChild(f.ctx, alice.ID, d.ID, c.ID)
		assert.ErrorIs(t, err, ErrHasParent)
	})

	t.Run("parent must be active", func(t *testing.T) {
		old := f.bill(t, alice, sp.ID, "10")
		require.NoError(t, f.svc.DeactivateBill(f.ctx, alice.ID, old.ID))
		e := f.bill(t, alice, sp.ID, "10")
		_, err := f.svc.AttachChild(f.ctx, alice.ID, old.ID, e.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("parent must be in the same space", func(t *testing.T) {
		other := f.space(t, alice)
		foreign := f.bill(t, alice, other.ID, "10")
		e := f.bill(t, alice, sp.ID, "10")
		_, err := f.svc.AttachChild(f.ctx, alice.ID, foreign.ID, e.ID)
		assert.ErrorIs(t, err, ErrCrossSpace)
	})

	t.Run("editor cannot attach an owner's bill", func(t *testing.T) {
		e := f.bill(t, alice, sp.ID, "10")
		_, err := f.svc.AttachChild(f.ctx, bobby.ID, a.ID, e.ID)
		assert.ErrorIs(t, err, ErrDenied)
	})

	t.Run("create with a parent", func(t *testing.T) {
		child, err := f.svc.CreateBill(f.ctx, bobby.ID, BillDraft{
			SpaceID: sp.ID, Name: "Again", Amount: dec("10"), Currency: models.CurrencyUSD, ParentID: c.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, c.ID, child.ParentID)
	})
}

func TestRecurrenceDepthLimit(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")
	sp := f.space(t, alice)

	prev := f.bill(t, alice, sp.ID, "1")
	for i := 1; i < MaxRecurrenceDepth; i++ {
		next := f.bill(t, alice, sp.ID, "1")
		_, err := f.svc.AttachChild(f.ctx, alice.ID, prev.ID, next.ID)
		require.NoError(t, err, "link %d", i)
		prev = next
	}

	last := f.bill(t, alice, sp.ID, "1")
	_, err := f.svc.AttachChild(f.ctx, alice.ID, prev.ID, last.ID)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestOrphan(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")
	bobby := f.register(t, "bobby")
	viewer := f.register(t, "viewer")
	sp := f.space(t, alice, bobby)
	_, err := f.svc.AddMember(f.ctx, alice.ID, sp.ID, viewer.ID, models.RoleViewer)
	require.NoError(t, err)

	parent := f.bill(t, alice, sp.ID, "10")
	child := f.bill(t, alice, sp.ID, "10")
	_, err = f.svc.AttachChild(f.ctx, alice.ID, parent.ID, child.ID)
	require.NoError(t, err)

	_, err = f.svc.Orphan(f.ctx, viewer.ID, child.ID)
	assert.ErrorIs(t, err, ErrDenied)

	// An editor may detach a bill created by the owner.
	got, err := f.svc.Orphan(f.ctx, bobby.ID, child.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ParentID)

	got, err = f.svc.Orphan(f.ctx, bobby.ID, child.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ParentID)

	children, err := f.svc.ListChildren(f.ctx, alice.ID, parent.ID)
	require.NoError(t, err)
	assert.Empty(t, children)
}
