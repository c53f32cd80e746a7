package configloader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load загружает конфиг в cfgPtr: defaults → ENV → YAML.
// envPrefix — префикс ENV переменных, например: "BRIDGE".
// aliases — дополнительные (legacy) имена ENV для ключей: key → []env.
// Возвращает *viper.Viper, чтобы вызывающий мог подписаться на изменения файла.
func Load(path, envPrefix string, defaults map[string]any, aliases map[string][]string, cfgPtr any) (*viper.Viper, error) {
	v := viper.New()

	// Шаг 1: defaults
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	// Шаг 2: environment override
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range aliases {
		// имя с префиксом обрабатывает AutomaticEnv, здесь только legacy
		names := append([]string{key}, envs...)
		if err := v.BindEnv(names...); err != nil {
			return nil, fmt.Errorf("configloader: bind env %q: %w", key, err)
		}
	}

	// Шаг 3: read file (if provided)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("configloader: read config %q: %w", path, err)
		}
	}

	if err := Decode(v, cfgPtr); err != nil {
		return nil, err
	}
	return v, nil
}

// Decode декодирует текущее состояние v в cfgPtr и валидирует результат.
func Decode(v *viper.Viper, cfgPtr any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "mapstructure",
		Result:  cfgPtr,
		// ENV приходит строками: "true", "30s", "a,b"
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	})
	if err != nil {
		return fmt.Errorf("configloader: decoder: %w", err)
	}
	if err := dec.Decode(v.AllSettings()); err != nil {
		return fmt.Errorf("configloader: decode failed: %w", err)
	}
	if vv, ok := cfgPtr.(interface{ Validate() error }); ok {
		if err := vv.Validate(); err != nil {
			return fmt.Errorf("configloader: validation failed: %w", err)
		}
	}
	return nil
}

// Watch подписывается на изменения файла конфигурации.
// Работает только если конфиг был загружен из файла.
func Watch(v *viper.Viper, onChange func(fsnotify.Event)) error {
	if v.ConfigFileUsed() == "" {
		return errors.New("configloader: no config file to watch")
	}
	v.OnConfigChange(onChange)
	v.WatchConfig()
	return nil
}
