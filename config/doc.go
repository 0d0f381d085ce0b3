// Package config loads goToken settings for a process from a YAML file and
// the environment.
//
// Every key has a default, so each can be overridden by an environment
// variable named GOTOKEN_ followed by the upper-cased key path with dots
// replaced by underscores. For example, auth.jwt_secret is read from
// GOTOKEN_AUTH_JWT_SECRET and redis.addr from GOTOKEN_REDIS_ADDR.
//
//	file, err := config.Load("gotoken.yaml")
//	if err != nil {
//		return err
//	}
//	rdb := redis.NewClient(file.Redis.Options())
//	engine, err := goToken.New().
//		WithConfig(file.EngineConfig()).
//		WithRedis(rdb).
//		WithPrincipalProvider(users).
//		Build()
package config
