package main

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"tinysqlite/pager"
)

// replConfig is the REPL binary's own configuration, layered flags over a
// tinysqlite.yaml/env-var config via viper. The engine packages never read
// flags or env vars themselves — they take a pager.Options/btree.Options
// value built here.
type replConfig struct {
	DBPath        string
	TableMaxPages int
}

func loadConfig(args []string) (replConfig, error) {
	flags := pflag.NewFlagSet("tinysqlite", pflag.ContinueOnError)
	flags.String("db", "tinysqlite.db", "path to the database file")
	flags.Int("table-max-pages", pager.DefaultTableMaxPages, "maximum resident page table size")
	if err := flags.Parse(args); err != nil {
		return replConfig{}, err
	}

	v := viper.New()
	v.SetConfigName("tinysqlite")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("TINYSQLITE")
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return replConfig{}, err
	}
	if err := v.ReadInConfig(); err != nil {
		if _, isNotFound := err.(viper.ConfigFileNotFoundError); !isNotFound {
			return replConfig{}, err
		}
	}

	return replConfig{
		DBPath:        v.GetString("db"),
		TableMaxPages: v.GetInt("table-max-pages"),
	}, nil
}
