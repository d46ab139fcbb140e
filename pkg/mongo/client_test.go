package mongo_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/clickmart/pkg/mongo"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := mongo.New(t.Context(), mongo.Config{}, nil)
	assert.ErrorIs(t, err, mongo.ErrEmptyConnectionURL)

	_, err = mongo.NewWithDatabase(t.Context(), mongo.Config{ConnectionURL: "mongodb://localhost:27017"}, nil)
	assert.ErrorIs(t, err, mongo.ErrEmptyDatabaseName)
}

func TestNew_Unreachable(t *testing.T) {
	t.Parallel()

	_, err := mongo.New(t.Context(), mongo.Config{
		ConnectionURL:  "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=50",
		ConnectTimeout: 100 * time.Millisecond,
		RetryAttempts:  2,
		RetryInterval:  10 * time.Millisecond,
	}, nil)
	assert.ErrorIs(t, err, mongo.ErrFailedToConnectToMongo)
}

func TestNew_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := mongo.New(t.Context(), mongo.Config{ConnectionURL: "not-a-mongo-url", RetryAttempts: 1}, nil)
	assert.ErrorIs(t, err, mongo.ErrFailedToConnectToMongo)
}
