package live

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/bryan-buckman/parkline/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	entities []model.LiveEntity
	err      error
	calls    []string
}

func (f *fakeSource) Live(_ context.Context, parkID string) ([]model.LiveEntity, error) {
	f.calls = append(f.calls, parkID)
	return f.entities, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseErrorPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    ErrorPolicy
		wantErr bool
	}{
		{"", PolicyEmpty, false},
		{"empty", PolicyEmpty, false},
		{" EMPTY ", PolicyEmpty, false},
		{"propagate", PolicyPropagate, false},
		{"Propagate", PolicyPropagate, false},
		{"throw", PolicyEmpty, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseErrorPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) ErrorPolicy {
	t.Helper()
	p, err := ParseErrorPolicy(s)
	require.NoError(t, err)
	return p
}

func TestLoader_Load(t *testing.T) {
	src := &fakeSource{entities: []model.LiveEntity{
		{ID: "a1", Name: "Space Mountain", EntityType: model.EntityAttraction},
		{ID: "r1", Name: "Cosmic Ray's", EntityType: model.EntityRestaurant},
		{ID: "s1", Name: "Festival of Fantasy", EntityType: model.EntityParade},
		{ID: "x1", Name: "Locker", EntityType: model.EntityType("MERCHANDISE")},
	}}
	l := NewLoader(src, PolicyEmpty, discardLogger())

	b, err := l.Load(context.Background(), "mk")
	require.NoError(t, err)
	assert.Equal(t, []string{"mk"}, src.calls)
	require.Len(t, b.Attractions, 1)
	require.Len(t, b.Restaurants, 1)
	require.Len(t, b.Shows, 1)
	assert.Equal(t, model.IntensityHigh, b.Attractions[0].Intensity)
}

func TestLoader_FailSoft(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	l := NewLoader(src, PolicyEmpty, discardLogger())

	b, err := l.Load(context.Background(), "mk")
	require.NoError(t, err)
	assert.Equal(t, model.EmptyBuckets(), b)
}

func TestLoader_Propagate(t *testing.T) {
	cause := errors.New("connection refused")
	src := &fakeSource{err: cause}
	l := NewLoader(src, PolicyEmpty, discardLogger())

	b, err := l.LoadWith(context.Background(), "mk", PolicyPropagate)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.Empty(t, b.Attractions)

	l = NewLoader(src, PolicyPropagate, nil)
	_, err = l.Load(context.Background(), "mk")
	assert.ErrorIs(t, err, cause)
}

func TestLoader_EachCallFetches(t *testing.T) {
	src := &fakeSource{entities: []model.LiveEntity{}}
	l := NewLoader(src, PolicyEmpty, discardLogger())

	for i := 0; i < 3; i++ {
		_, err := l.Load(context.Background(), "ep")
		require.NoError(t, err)
	}
	assert.Len(t, src.calls, 3)
}
