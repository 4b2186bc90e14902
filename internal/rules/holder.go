package rules

import (
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	alertdomain "github.com/smallbiznis/opsalert/internal/alert/domain"
	"github.com/smallbiznis/opsalert/internal/config"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Source hands detectors the table snapshot current at invocation.
type Source interface {
	Get() Table
}

type staticSource struct{ table Table }

func (s staticSource) Get() Table { return s.table }

// Static returns a Source that never changes.
func Static(t Table) Source { return staticSource{table: t} }

type Holder struct {
	current atomic.Value // holds Table
	log     *zap.Logger
}

// NewHolder loads rules.yml over the defaults. A missing file is not an
// error; a present but invalid file is.
func NewHolder(cfg config.Config, log *zap.Logger) (*Holder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("rules")

	v := viper.New()
	v.SetConfigType("yml")
	if cfg.RulesPath != "" {
		v.SetConfigFile(cfg.RulesPath)
	} else {
		v.SetConfigName("rules")
		v.AddConfigPath("/etc/opsalert")
		v.AddConfigPath("/var/lib/opsalert/config")
		v.AddConfigPath(".")
	}

	holder := &Holder{log: log}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Info("no rules file found, using defaults")
		holder.current.Store(DefaultTable())
		return holder, nil
	}

	table, err := decode(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(table)
	log.Info("rules loaded", zap.String("file", v.ConfigFileUsed()))

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decode(v)
		if err != nil {
			log.Warn("invalid rules ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("rules reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *Holder) Get() Table {
	return h.current.Load().(Table)
}

// decode overlays the "rules" key on the defaults. Keys present in the file
// replace the default value wholesale, so a shorter bounds list does not
// inherit trailing default entries.
func decode(v *viper.Viper) (Table, error) {
	table := DefaultTable()
	if v.IsSet("rules") {
		err := v.UnmarshalKey("rules", &table, func(dc *mapstructure.DecoderConfig) {
			dc.ZeroFields = true
			dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
				severityHook,
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			)
		})
		if err != nil {
			return Table{}, fmt.Errorf("%w: %v", ErrInvalidRules, err)
		}
	}
	if err := table.Validate(); err != nil {
		return Table{}, err
	}
	return table, nil
}

var severityType = reflect.TypeOf(alertdomain.Severity(""))

// severityHook normalizes severity names ("High", " CRITICAL") while decoding.
func severityHook(from, to reflect.Type, data any) (any, error) {
	if to != severityType || from.Kind() != reflect.String {
		return data, nil
	}
	return alertdomain.ParseSeverity(reflect.ValueOf(data).String())
}
