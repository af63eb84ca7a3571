/*
Package redisstore stores trained ensembles in a redis DB, serialized
in the plain-text model format.
*/
package redisstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"gopkg.in/redis.v5"

	"github.com/quadrivio/entree/model"
)

type redisStore struct {
	rc     *redis.Client
	prefix string
}

/*
New takes a redis client and a key prefix and returns a model.Store
backed by the redis DB the client points to. A model named name lives
under the key prefix:name.
*/
func New(rc *redis.Client, prefix string) model.Store {
	return &redisStore{rc: rc, prefix: prefix}
}

func (rs *redisStore) Get(ctx context.Context, name string) (*model.Ensemble, error) {
	data, err := rs.rc.Get(rs.keyFor(name)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("retrieving model %q from redis: %v", name, err)
	}
	e, err := model.Read(strings.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("retrieving model %q: decoding: %v", name, err)
	}
	return e, nil
}

func (rs *redisStore) Put(ctx context.Context, name string, e *model.Ensemble) error {
	var buf bytes.Buffer
	if err := model.Write(&buf, e); err != nil {
		return fmt.Errorf("storing model %q: encoding: %v", name, err)
	}
	_, err := rs.rc.Set(rs.keyFor(name), buf.Bytes(), 0).Result()
	if err != nil {
		return fmt.Errorf("storing model %q in redis: %v", name, err)
	}
	return nil
}

func (rs *redisStore) Delete(ctx context.Context, name string) error {
	_, err := rs.rc.Del(rs.keyFor(name)).Result()
	if err != nil {
		return fmt.Errorf("deleting model %q from redis: %v", name, err)
	}
	return nil
}

func (rs *redisStore) Close(ctx context.Context) error {
	return rs.rc.Close()
}

func (rs *redisStore) keyFor(name string) string {
	return fmt.Sprintf("%s:%s", rs.prefix, name)
}
