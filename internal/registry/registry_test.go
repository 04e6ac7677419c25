package registry

import (
	"context"
	"testing"

	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
	"github.com/stretchr/testify/require"
)

func TestDispatchOrderSubjectThenWildcard(t *testing.T) {
	r := New()
	var order []string

	r.Subscribe("aexowork.offers", func(ctx context.Context, e *envelope.Envelope, meta Metadata) {
		order = append(order, "subject-1")
	})
	r.Subscribe(Wildcard, func(ctx context.Context, e *envelope.Envelope, meta Metadata) {
		order = append(order, "wildcard")
	})
	r.Subscribe("aexowork.offers", func(ctx context.Context, e *envelope.Envelope, meta Metadata) {
		order = append(order, "subject-2")
	})

	e := envelope.New("aexowork.offers", "0.0.1001", "Offer", 1000)
	r.Dispatch(context.Background(), e, Metadata{FromAccountID: "0.0.1001", Verified: true})

	require.Equal(t, []string{"subject-1", "subject-2", "wildcard"}, order)
}

func TestDispatchOtherSubjectNotInvoked(t *testing.T) {
	r := New()
	called := false
	r.Subscribe("aexowork.jobs", func(ctx context.Context, e *envelope.Envelope, meta Metadata) {
		called = true
	})

	e := envelope.New("aexowork.offers", "0.0.1001", "Offer", 1000)
	r.Dispatch(context.Background(), e, Metadata{})

	require.False(t, called)
}

func TestHandlerPanicDoesNotAffectSiblings(t *testing.T) {
	r := New()
	secondCalled := false

	r.Subscribe("aexowork.offers", func(ctx context.Context, e *envelope.Envelope, meta Metadata) {
		panic("boom")
	})
	r.Subscribe("aexowork.offers", func(ctx context.Context, e *envelope.Envelope, meta Metadata) {
		secondCalled = true
	})

	e := envelope.New("aexowork.offers", "0.0.1001", "Offer", 1000)
	require.NotPanics(t, func() {
		r.Dispatch(context.Background(), e, Metadata{})
	})
	require.True(t, secondCalled)
}

func TestSubjectsAndTeardown(t *testing.T) {
	r := New()
	r.Subscribe("aexowork.offers", func(ctx context.Context, e *envelope.Envelope, meta Metadata) {})
	r.Subscribe("aexowork.jobs", func(ctx context.Context, e *envelope.Envelope, meta Metadata) {})

	require.ElementsMatch(t, []string{"aexowork.offers", "aexowork.jobs"}, r.Subjects())

	r.Teardown()
	require.Empty(t, r.Subjects())
}
