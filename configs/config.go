package configs

import (
	"errors"

	"github.com/spf13/viper"
)

type Config struct {
	DB struct {
		// Two logically identical schemas, never sharing storage: the bound
		// strategy only ever touches SafeDSN, the interpolated one UnsafeDSN.
		SafeDSN   string `mapstructure:"safe_dsn"`
		UnsafeDSN string `mapstructure:"unsafe_dsn"`
	} `mapstructure:"db"`
	JWT struct {
		Secret string `mapstructure:"secret"`
	} `mapstructure:"jwt"`
	Images struct {
		UploadDir string `mapstructure:"upload_dir"`
		AssetDir  string `mapstructure:"asset_dir"`
	} `mapstructure:"images"`
	Market struct {
		PageSize int `mapstructure:"page_size"`
	} `mapstructure:"market"`
	Jobs struct {
		SweepSchedule string `mapstructure:"sweep_schedule"`
	} `mapstructure:"jobs"`
}

func Load() (Config, error) {
	viper.AddConfigPath("./configs")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	var cfg Config
	var fileLookupError viper.ConfigFileNotFoundError
	if err := viper.ReadInConfig(); err != nil {
		if errors.As(err, &fileLookupError) {
			return cfg, errors.New("config file not found")
		}
		return cfg, err
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if cfg.Market.PageSize <= 0 {
		cfg.Market.PageSize = 4
	}
	if cfg.Jobs.SweepSchedule == "" {
		cfg.Jobs.SweepSchedule = "@hourly"
	}
	return cfg, nil
}
