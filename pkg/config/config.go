/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

type SerialConfig struct {
	Device string `yaml:"device"`
	Baud int `yaml:"baud"`
}

type CaptureConfig struct {
	Output string `yaml:"output"`
	MaxPayloadSize int `yaml:"max_payload_size"`
	// Configure makes the recorder enable NAV-PVT output on all receiver
	// ports and poll MON-VER before streaming starts.
	Configure bool `yaml:"configure"`
}

type ApiConfig struct {
	Address string `yaml:"address"`
	Port int `yaml:"port"`
}

type Config struct {
	*SerialConfig `yaml:"serial"`
	*CaptureConfig `yaml:"capture"`
	*ApiConfig `yaml:"api"`
	LogLevel string `yaml:"log_level"`
	filepath string
}

// Persist writes the config to its file in yaml format
func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(&c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	err = ioutil.WriteFile(c.filepath, data, 0644)
	if err != nil {
		return err
	}

	return nil
}

// Load reads the config file if it exists, otherwise defaults are kept
func (c *Config) Load() error {
	data, err := ioutil.ReadFile(c.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) String() string {
	data, err := yaml.Marshal(&c)
	if err != nil {
		return ""
	}
	return string(data)
}

// SessionDBPath is the path of the bbolt database where capture session
// records are kept
func (c *Config) SessionDBPath() string {
	return filepath.Join(filepath.Dir(c.filepath), SessionDBFile)
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

func NewDefaultConfig() *Config {
	return &Config{
		SerialConfig: &SerialConfig{
			Device: DefaultDevice,
			Baud: DefaultBaud,
		},
		CaptureConfig: &CaptureConfig{
			Output: DefaultOutput,
			MaxPayloadSize: DefaultMaxPayloadSize,
			Configure: false,
		},
		ApiConfig: &ApiConfig{
			Address: DefaultApiAddress,
			Port: DefaultApiPort,
		},
		LogLevel: DefaultLogLevel,
		filepath: DefaultConfigPath(),
	}
}
