/*
 * Copyright 2022 Medicines Discovery Catapult
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *     http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package lib

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const configFlag = "config"

type BaseConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

// BaseDefaults returns defaults with the keys every binary shares filled in where
// they are missing.
func BaseDefaults(defaults map[string]interface{}) map[string]interface{} {
	res := map[string]interface{}{
		"log_level": "info",
	}
	for k, v := range defaults {
		res[k] = v
	}
	return res
}

// InitializeConfig standardises config initialization across all apps.
//
// Config is read from a yml file at defaultPath, or at the path given with the
// --config flag. For example, with a defaultPath of "./config/annotation-api.yml" a
// config map with an annotation-api.yml key can be mounted at $(pwd)/config.
//
// Keys which exist in defaultConfig but not in the yml file keep their default.
// Env vars override keys that viper knows about: the env var is the uppercased key
// with "." replaced by "_", so CONSENSUS_GOLD_THRESHOLD sets consensus.gold_threshold.
//
// targetStruct must be a pointer to the struct the config is unmarshalled to. The
// global zerolog level is set from log_level.
func InitializeConfig(defaultPath string, defaultConfig map[string]interface{}, targetStruct interface{}) error {

	// load the config flag argument into viper
	pflag.String(configFlag, defaultPath, "The config file path.")
	pflag.Parse()

	err := viper.BindPFlags(pflag.CommandLine)
	if err != nil {
		return err
	}

	// load the config filepath from viper
	configFile := viper.GetString("config")

	if !filepath.IsAbs(configFile) {
		configFile, err = filepath.Abs(configFile)
		if err != nil {
			return err
		}
	}

	// set viper's default config using defaultConfig
	for k, v := range defaultConfig {
		viper.SetDefault(k, v)
	}

	// set the name for the config file
	viper.SetConfigName(strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile)))
	viper.AddConfigPath(filepath.Dir(configFile))

	// tell viper to prefer env vars over config keys. An env var must ALSO exist as a key in
	// viper's config for viper to be able to read the env var.
	viper.AutomaticEnv()

	// rewrite env var names to use "_" instead of "." when reading env vars
	repl := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(repl)

	// now we are ready to read the config into viper - we have told it where to look for it with `addConfigPath()`
	err = viper.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		log.Warn().Err(err).Msg("default settings applied")
	} else if err != nil {
		return err
	}

	var bc BaseConfig
	err = viper.Unmarshal(&bc)
	if err != nil {
		return err
	}

	lvl, err := zerolog.ParseLevel(bc.LogLevel)
	if err != nil {
		return errors.Wrapf(err, "log_level %q", bc.LogLevel)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Debug().Str("config", viper.ConfigFileUsed()).Str("log_level", lvl.String()).Msg("config initialised")

	// unmarshal config into struct
	if err := viper.Unmarshal(targetStruct); err != nil {
		return err
	}

	return nil
}
