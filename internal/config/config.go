package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/agentx-labs/stackforge/internal/branding"
	"github.com/agentx-labs/stackforge/internal/copier"
	"github.com/agentx-labs/stackforge/internal/errs"
	"github.com/agentx-labs/stackforge/internal/log"
	"github.com/agentx-labs/stackforge/internal/process"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Keys.
const (
	KeySourceDir      = "source_dir"
	KeyCopyThreshold  = "copy.threshold_bytes"
	KeyWorkers        = "engine.workers"
	KeyPackageManager = "install.package_manager"
	KeyInstallTimeout = "install.timeout"
	KeyGitEnabled     = "git.enabled"
	KeyGitTimeout     = "git.timeout"
	KeyGitAuthorName  = "git.author_name"
	KeyGitAuthorEmail = "git.author_email"
	KeyLogLevel       = "log.level"
	KeyLogFormat      = "log.format"
)

// Dir returns the path to the config directory (~/.stackforge/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.stackforge/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// DefaultSourceDir is where templates and the standards corpus are looked
// up when nothing else is configured.
func DefaultSourceDir() string {
	return filepath.Join(Dir(), "source")
}

// Settings is the typed snapshot a run works from.
type Settings struct {
	SourceDir      string `validate:"required"`
	CopyThreshold  int64  `validate:"gt=0"`
	Workers        int    `validate:"gte=0"`
	PackageManager process.PackageManager
	InstallTimeout time.Duration `validate:"gt=0"`
	GitEnabled     bool
	GitTimeout     time.Duration `validate:"gt=0"`
	GitIdentity    process.Identity
	LogLevel       slog.Level
	LogFormat      log.Format
}

var settingsValidate = validator.New()

// fieldKeys maps validated Settings fields back to their config keys.
var fieldKeys = map[string]string{
	"SourceDir":      KeySourceDir,
	"CopyThreshold":  KeyCopyThreshold,
	"Workers":        KeyWorkers,
	"InstallTimeout": KeyInstallTimeout,
	"GitTimeout":     KeyGitTimeout,
}

var tagReasons = map[string]string{
	"required": "must be set",
	"gt":       "must be positive",
	"gte":      "must be zero (auto) or positive",
	"email":    "must be an email address",
}

// New returns a viper instance with defaults and environment binding.
// STACKFORGE_GIT_TIMEOUT overrides git.timeout, and so on.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType(fileType)
	v.SetEnvPrefix(branding.EnvPrefix())
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeySourceDir, "")
	v.SetDefault(KeyCopyThreshold, copier.DefaultThreshold)
	v.SetDefault(KeyWorkers, 0)
	v.SetDefault(KeyPackageManager, string(process.NPM))
	v.SetDefault(KeyInstallTimeout, process.DefaultInstallTimeout)
	v.SetDefault(KeyGitEnabled, true)
	v.SetDefault(KeyGitTimeout, process.DefaultGitTimeout)
	v.SetDefault(KeyGitAuthorName, "")
	v.SetDefault(KeyGitAuthorEmail, "")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "text")
	return v
}

// Load reads file (or the default config file when file is empty) into v
// and returns the resulting settings. A missing default file is not an
// error; a missing explicit file is.
func Load(v *viper.Viper, file string) (*Settings, error) {
	explicit := file != ""
	if !explicit {
		file = FilePath()
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
		if explicit || !missing {
			return nil, fmt.Errorf("reading config file %s: %w", file, err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		SourceDir:      v.GetString(KeySourceDir),
		CopyThreshold:  v.GetInt64(KeyCopyThreshold),
		Workers:        v.GetInt(KeyWorkers),
		InstallTimeout: v.GetDuration(KeyInstallTimeout),
		GitEnabled:     v.GetBool(KeyGitEnabled),
		GitTimeout:     v.GetDuration(KeyGitTimeout),
		GitIdentity: process.Identity{
			Name:  v.GetString(KeyGitAuthorName),
			Email: v.GetString(KeyGitAuthorEmail),
		},
	}

	if s.SourceDir == "" {
		s.SourceDir = DefaultSourceDir()
	}
	abs, err := filepath.Abs(s.SourceDir)
	if err != nil {
		return nil, errs.Validation(KeySourceDir, s.SourceDir, err.Error())
	}
	s.SourceDir = abs

	if err := settingsValidate.Struct(s); err != nil {
		return nil, validationError(v, err)
	}
	if err := settingsValidate.Var(s.GitIdentity.Email, "omitempty,email"); err != nil {
		return nil, errs.Validation(KeyGitAuthorEmail, s.GitIdentity.Email, tagReasons["email"])
	}

	if s.PackageManager, err = process.ParsePackageManager(v.GetString(KeyPackageManager)); err != nil {
		return nil, err
	}
	if s.LogLevel, err = log.ParseLevel(v.GetString(KeyLogLevel)); err != nil {
		return nil, errs.Validation(KeyLogLevel, v.GetString(KeyLogLevel), err.Error())
	}
	if s.LogFormat, err = log.ParseFormat(v.GetString(KeyLogFormat)); err != nil {
		return nil, errs.Validation(KeyLogFormat, v.GetString(KeyLogFormat), err.Error())
	}
	return s, nil
}

// validationError turns the first validator failure into a
// *errs.ValidationError naming the config key.
func validationError(v *viper.Viper, err error) error {
	var fails validator.ValidationErrors
	if !errors.As(err, &fails) || len(fails) == 0 {
		return err
	}
	fe := fails[0]
	key, ok := fieldKeys[fe.Field()]
	if !ok {
		key = fe.Field()
	}
	reason, ok := tagReasons[fe.Tag()]
	if !ok {
		reason = "fails the " + fe.Tag() + " rule"
	}
	return errs.Validation(key, v.GetString(key), reason)
}
