// Package config loads typed configuration structs from environment
// variables, optionally seeded from dotenv files.
//
// Struct fields are mapped with caarlos0/env tags; nested structs are parsed
// recursively, so a service config can embed the configs of the packages it
// wires:
//
//	type Config struct {
//		Env   string        `env:"APP_ENV" envDefault:"development"`
//		Mongo mongo.Config
//		Queue queue.Config
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
//
// Parsing errors wrap ErrParsingConfig; unreadable env files wrap ErrEnvFile.
package config
