package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// LoadConfig reads the .env file at path into the process environment.
// Values already present in the environment win over file values. Missing
// files are fine: containers usually inject everything through the
// environment directly.
func LoadConfig(path string) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		for _, key := range viper.AllKeys() {
			envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
			if os.Getenv(envKey) == "" {
				_ = os.Setenv(envKey, viper.GetString(key))
			}
		}
		logrus.Debugf("[CONFIG] Loaded %s", viper.ConfigFileUsed())
		return
	}

	// Some .env files carry syntax viper rejects; let godotenv have a go.
	if err := godotenv.Load(filepath.Join(path, ".env")); err == nil {
		logrus.Debug("[CONFIG] Loaded .env via godotenv")
	}
}
