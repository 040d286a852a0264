package utils

import (
	"io"
	"log"
	"os"
)

// LoggerConfig определяет конфигурацию для логгера
type LoggerConfig struct {
	// Формат логов (text/json)
	Format string
	// Выходной поток, по умолчанию os.Stdout
	Output io.Writer
	// Включить/выключить цвета для консоли
	EnableColors bool
}

// InitLogger инициализирует и возвращает логгер
func InitLogger(config ...LoggerConfig) *log.Logger {
	var cfg LoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	prefix := "[Apollo] "

	if cfg.Format == "json" {
		return log.New(cfg.Output, prefix, log.LstdFlags|log.LUTC)
	}
	if cfg.EnableColors {
		prefix = "\033[36m" + prefix + "\033[0m"
	}
	return log.New(cfg.Output, prefix, log.LstdFlags|log.Lshortfile|log.LUTC)
}

// Tagged возвращает логгер с тем же выводом, что и base, и префиксом тега,
// например "[PAYMENTS] ".
func Tagged(base *log.Logger, tag string) *log.Logger {
	if base == nil {
		base = log.Default()
	}
	return log.New(base.Writer(), base.Prefix()+"["+tag+"] ", base.Flags()&^log.Lshortfile)
}

// Discard логгер для тестов
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}
