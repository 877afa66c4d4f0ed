package portal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wgharvest/pkg/storage"
)

func TestMockPortalSession(t *testing.T) {
	workdir, err := storage.NewManager(t.TempDir(), ".conf")
	require.NoError(t, err)

	p := NewMockPortal(workdir, NewMockGroup("Switzerland", "ch-1", "ch-2"))
	ctx := context.Background()

	d, err := p.Launch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, p.OpenDrivers())

	_, err = d.Groups(ctx)
	assert.Error(t, err, "catalog must be opened first")

	require.NoError(t, d.Authenticate(ctx, Credentials{Username: "u", Password: "p"}))
	require.NoError(t, d.OpenCatalog(ctx))

	groups, err := d.Groups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	entries, err := d.Entries(ctx, groups[0])
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Switzerland", entries[0].Group)

	name, err := d.Fetch(ctx, entries[0])
	require.NoError(t, err)
	assert.Equal(t, "wg-ch-1.conf", name)
	assert.Equal(t, 1, p.FetchCount("ch-1"))

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.Equal(t, 0, p.OpenDrivers())
}

func TestMockPortalInjectedFailures(t *testing.T) {
	workdir, err := storage.NewManager(t.TempDir(), ".conf")
	require.NoError(t, err)

	p := NewMockPortal(workdir, NewMockGroup("Germany", "de-1"))
	p.FailAuth[1] = true
	p.FailFetch["de-1"] = 1
	ctx := context.Background()
	creds := Credentials{Username: "u", Password: "p"}

	d, _ := p.Launch(ctx)
	assert.ErrorIs(t, d.Authenticate(ctx, creds), ErrMock)
	d.Close()

	d, _ = p.Launch(ctx)
	require.NoError(t, d.Authenticate(ctx, creds))
	require.NoError(t, d.OpenCatalog(ctx))
	groups, _ := d.Groups(ctx)
	entries, _ := d.Entries(ctx, groups[0])

	_, err = d.Fetch(ctx, entries[0])
	assert.ErrorIs(t, err, ErrMock)
	_, err = d.Fetch(ctx, entries[0])
	assert.NoError(t, err)
	d.Close()

	assert.Equal(t, 2, p.Sessions())
}

func TestCredentialsString(t *testing.T) {
	c := Credentials{Username: "alice", Password: "hunter2"}
	assert.NotContains(t, c.String(), "hunter2")
	assert.False(t, Credentials{Username: "alice"}.Valid())
}
