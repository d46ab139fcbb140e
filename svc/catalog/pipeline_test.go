package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestBestSellersPipeline(t *testing.T) {
	t.Parallel()

	from := time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC)
	to := from.Add(24*time.Hour - time.Second)

	p := bestSellersPipeline(from, to, 4)
	require.Len(t, p, 6)

	stages := make([]string, 0, len(p))
	for _, stage := range p {
		stages = append(stages, stage[0].Key)
	}
	assert.Equal(t, []string{"$match", "$unwind", "$match", "$group", "$sort", "$limit"}, stages)

	match := p[0][0].Value.(bson.D)
	assert.Equal(t, bson.D{{Key: "$gte", Value: from.Unix()}, {Key: "$lte", Value: to.Unix()}}, match[0].Value)
	assert.Equal(t, bson.E{Key: "payment_status", Value: "paid"}, match[2])
	assert.Equal(t, int64(4), p[5][0].Value)

	assert.Equal(t, int64(1), bestSellersPipeline(from, to, 0)[5][0].Value)
}

func TestObjectIDs(t *testing.T) {
	t.Parallel()

	oid := bson.NewObjectID()
	got := objectIDs([]string{oid.Hex(), "nope", ""})
	assert.Equal(t, []bson.ObjectID{oid}, got)
}

func TestProductDocMapping(t *testing.T) {
	t.Parallel()

	id, cat := bson.NewObjectID(), bson.NewObjectID()
	raw, err := bson.Marshal(productDoc{ID: id, CategoryID: cat, Product: Product{Name: "Milk", Price: 120, IsActive: 1, CreatedAt: 10}})
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.Equal(t, "Milk", m["name"])
	assert.Equal(t, id, m["_id"])
	assert.Equal(t, cat, m["category_id"])
	assert.NotContains(t, m, "id")

	var back productDoc
	require.NoError(t, bson.Unmarshal(raw, &back))
	p := back.product()
	assert.Equal(t, id.Hex(), p.ID)
	assert.Equal(t, cat.Hex(), p.CategoryID)
	assert.Equal(t, int64(10), p.CreatedAt)
}
