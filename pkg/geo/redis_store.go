package geo

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares resolved city coordinates between server instances
// through a Redis GEO set
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a store on the GEO set named key
func NewRedisStore(addr, password, key string) *RedisStore {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisStore{client: c, key: key}
}

// Get returns the stored coordinates of member. found is false when the
// member is not in the set.
func (r *RedisStore) Get(ctx context.Context, member string) (p Point, found bool, err error) {
	positions, err := r.client.GeoPos(ctx, r.key, member).Result()
	if err != nil {
		return Point{}, false, fmt.Errorf("redis GEOPOS failed: %w", err)
	}
	if len(positions) == 0 || positions[0] == nil {
		return Point{}, false, nil
	}
	return Point{Lat: positions[0].Latitude, Lon: positions[0].Longitude}, true, nil
}

// Put records the coordinates of member
func (r *RedisStore) Put(ctx context.Context, member string, p Point) error {
	err := r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{
		Name:      member,
		Longitude: p.Lon,
		Latitude:  p.Lat,
	}).Err()
	if err != nil {
		return fmt.Errorf("redis GEOADD failed: %w", err)
	}
	return nil
}

// Ping checks the connection
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
