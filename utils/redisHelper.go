package utils

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/mmdatafocus/sales_backend/config"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

// models whose cached copies expire
func typeHasExpiration(typeName string) bool {
	expirableTypes := map[string]bool{
		"Product":  true,
		"Category": true,
		"Customer": true,
	}
	return expirableTypes[typeName]
}

func RedisKey[T any](id int) string {
	return GetTypeName[T]() + ":" + fmt.Sprint(id)
}

func RedisListKey[T any]() string {
	return GetTypeName[T]() + "List"
}

// store instance, obj should be a pointer
func StoreRedis[T any](obj any, id int) error {
	var duration time.Duration
	if typeHasExpiration(GetTypeName[T]()) {
		duration = GetCacheLifespan()
	}
	return config.SetRedisObject(RedisKey[T](id), &obj, duration)
}

func StoreRedisList[T any](obj any) error {
	var duration time.Duration
	if typeHasExpiration(GetTypeName[T]()) {
		duration = GetCacheLifespan()
	}
	return config.SetRedisObject(RedisListKey[T](), &obj, duration)
}

// get from redis
// returns nil if does not exist
func RetrieveRedis[T any](id int) (*T, error) {
	var result *T
	exists, err := config.GetRedisObject(RedisKey[T](id), &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

func RetrieveRedisList[T any]() ([]*T, error) {
	var result []*T
	exists, err := config.GetRedisObject(RedisListKey[T](), &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

// remove instances Type:$id and the Type list
func RemoveRedisItems[T any](ids ...int) error {
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, RedisKey[T](id))
	}
	keys = append(keys, RedisListKey[T]())
	return config.RemoveRedisKey(keys...)
}
