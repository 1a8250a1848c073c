package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeysAreOwnerScoped(t *testing.T) {
	assert.Equal(t, "owner:4:apartment:9:stats:2025-03", ApartmentStatsKey(4, 9, "2025-03"))
	assert.Equal(t, "owner:4:reports:overdue", ReportKey(4, "overdue"))
}

func TestHelpersAreNoOpsWithoutClient(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	SetCached(ctx, "owner:1:reports:overdue", []byte("x"), time.Minute)
	_, ok := GetCached(ctx, "owner:1:reports:overdue")
	assert.False(t, ok)

	InvalidateOwner(ctx, 1)
	InvalidateAllOwners(ctx)
	assert.False(t, IsHealthy())
}
