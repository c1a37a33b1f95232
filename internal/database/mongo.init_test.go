package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	reportmodels "daily_ops/internal/api/report/models"
)

func TestIndexSpecsOfSalesAggregate(t *testing.T) {
	specs, err := IndexSpecsOf(reportmodels.SalesAggregate{})
	require.NoError(t, err)
	require.Len(t, specs, 1)

	assert.Equal(t, "sales_location_day_unique", specs[0].Name)
	assert.True(t, specs[0].Unique)
	assert.Equal(t, bson.D{{Key: "locationId", Value: 1}, {Key: "workingDay", Value: 1}}, specs[0].Keys)
}

func TestIndexSpecsOfDirtyDay(t *testing.T) {
	specs, err := IndexSpecsOf(&reportmodels.AggregateDirtyDay{})
	require.NoError(t, err)

	byName := map[string]IndexSpec{}
	for _, s := range specs {
		byName[s.Name] = s
	}
	require.Contains(t, byName, "processedAt_single")
	require.Contains(t, byName, "dirty_location_day_unique")
	require.Contains(t, byName, "dirty_worker_marked")

	assert.True(t, byName["dirty_location_day_unique"].Unique)
	assert.False(t, byName["dirty_worker_marked"].Unique)
	assert.Equal(t, bson.D{{Key: "markedAt", Value: 1}, {Key: "processedAt", Value: 1}}, byName["dirty_worker_marked"].Keys)
}

func TestIndexSpecsOfTags(t *testing.T) {
	type sample struct {
		Email     string `bson:"email" index:"unique,sparse"`
		ExpiresAt int64  `bson:"expiresAt,omitempty" index:"ttl:3600"`
		Score     int    `bson:"score" index:"single,order:-1"`
		Skipped   string `bson:"-" index:"single"`
		NoIndex   string `bson:"noIndex"`
	}
	specs, err := IndexSpecsOf(sample{})
	require.NoError(t, err)
	require.Len(t, specs, 3)

	assert.Equal(t, "email_unique", specs[0].Name)
	assert.True(t, specs[0].Unique)
	assert.True(t, specs[0].Sparse)

	assert.Equal(t, "expiresAt_ttl", specs[1].Name)
	require.NotNil(t, specs[1].TTL)
	assert.EqualValues(t, 3600, *specs[1].TTL)

	assert.Equal(t, bson.D{{Key: "score", Value: -1}}, specs[2].Keys)
}

func TestIndexSpecsOfRejectsNonStruct(t *testing.T) {
	_, err := IndexSpecsOf(42)
	assert.Error(t, err)

	type badTTL struct {
		At int64 `bson:"at" index:"ttl:abc"`
	}
	_, err = IndexSpecsOf(badTTL{})
	assert.Error(t, err)
}

func TestSameIndex(t *testing.T) {
	spec := IndexSpec{Name: "x", Keys: bson.D{{Key: "a", Value: 1}, {Key: "b", Value: 1}}, Unique: true}

	assert.True(t, sameIndex(bson.M{"key": bson.D{{Key: "a", Value: int32(1)}, {Key: "b", Value: int32(1)}}, "unique": true}, spec))
	assert.True(t, sameIndex(bson.M{"key": bson.M{"b": int32(1), "a": int32(1)}, "unique": true}, spec))
	assert.False(t, sameIndex(bson.M{"key": bson.D{{Key: "a", Value: int32(1)}, {Key: "b", Value: int32(1)}}}, spec))
	assert.False(t, sameIndex(bson.M{"key": bson.D{{Key: "a", Value: int32(1)}}, "unique": true}, spec))
}
