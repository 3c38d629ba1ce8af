// Copyright 2025 PolyCrypt GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	plogrus "perun.network/go-perun/log/logrus"
)

type baseConfiguration struct {
	// The asset holder home directory
	HomeDir string
	// Configuration file URL. If it's relative, then it's relative from the HomeDir.
	CfgFile string
	// Log level, one of the logrus levels.
	LogLevel string
}

const (
	// The prefix for configuration keys inside environment.
	envPrefix = "PERUN"
	// The default name for config file.
	defaultConfigFile = "config.props"
	// The default asset holder directory.
	defaultHomeDir = ".perun-assetholder"
	// The configuration key for home directory.
	keyHome = "home"
	// The configuration key for config file name.
	keyConfig = "config"

	flagNameLogLevel = "log-level"
	defaultLogLevel  = "info"
)

func (r *baseConfiguration) addConfigurationFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&r.HomeDir, keyHome, "", fmt.Sprintf("set the PERUN_HOME for this invocation (default is %s)", homeDir()))
	cmd.PersistentFlags().StringVar(&r.CfgFile, keyConfig, "", fmt.Sprintf("config file URL (default is $PERUN_HOME/%s)", defaultConfigFile))
	cmd.PersistentFlags().StringVar(&r.LogLevel, flagNameLogLevel, defaultLogLevel, "logging level, one of: trace, debug, info, warn, error")
}

func (r *baseConfiguration) initConfigFileLocation() {
	// Home directory and config file are special configuration values as these are used for loading in rest of the configuration.
	if r.HomeDir == "" {
		r.HomeDir = os.Getenv(envKey(keyHome))
		if r.HomeDir == "" {
			r.HomeDir = homeDir()
		}
	}

	if r.CfgFile == "" {
		r.CfgFile = os.Getenv(envKey(keyConfig))
		if r.CfgFile == "" {
			r.CfgFile = defaultConfigFile
		}
	}
	if !filepath.IsAbs(r.CfgFile) {
		r.CfgFile = filepath.Join(r.HomeDir, r.CfgFile)
	}
}

func (r *baseConfiguration) configFileExists() bool {
	_, err := os.Stat(r.CfgFile)
	return err == nil
}

// initLogger installs a logrus logger as the go-perun default logger.
func (r *baseConfiguration) initLogger() error {
	level, err := logrus.ParseLevel(r.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	plogrus.Set(level, &logrus.TextFormatter{FullTimestamp: true})
	return nil
}

func envKey(key string) string {
	return strings.ToUpper(envPrefix + "_" + key)
}

func homeDir() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		panic("default user home dir not defined: " + err.Error())
	}
	return filepath.Join(dir, defaultHomeDir)
}
