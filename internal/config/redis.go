package config

// Redis backs the rate limiter and the catalog response cache.  Both are
// optional: when the connection cannot be established at startup this
// constructor returns nil and the middleware layers run as pass-throughs,
// so the booking API stays up without Redis.

import (
    "context"
    "crypto/tls"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// NewRedisClient builds a client from REDIS_HOST/REDIS_PORT (or REDIS_ADDR
// as a host:port shorthand), REDIS_PASSWORD, REDIS_DB and REDIS_TLS.
// Returns nil when the server does not answer a ping within two seconds.
func NewRedisClient() *redis.Client {
    addr := envStr("REDIS_ADDR", "")
    host := envStr("REDIS_HOST", "")
    port := envStr("REDIS_PORT", "")
    if host != "" && port != "" {
        addr = host + ":" + port
    }
    if addr == "" {
        addr = "localhost:6379"
    }

    dbNum := 0
    if dbStr := envStr("REDIS_DB", ""); dbStr != "" {
        if n, err := strconv.Atoi(dbStr); err == nil {
            dbNum = n
        }
    }

    var tlsConf *tls.Config
    if v := envStr("REDIS_TLS", ""); strings.EqualFold(v, "true") || v == "1" {
        tlsConf = &tls.Config{InsecureSkipVerify: true}
    }

    client := redis.NewClient(&redis.Options{
        Addr:      addr,
        Password:  envStr("REDIS_PASSWORD", ""),
        DB:        dbNum,
        TLSConfig: tlsConf,
    })

    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        return nil
    }
    return client
}
