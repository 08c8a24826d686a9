// Package version хранит сведения о сборке, которые проставляются через -ldflags.
package version

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// ServiceName — имя сервиса в логах, health-ответах и client id брокера.
const ServiceName = "r4c-service"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info returns version information populated via -ldflags.
func Info() (v, c, d string) { return version, commit, date }

// Version возвращает версию сборки.
func Version() string { return version }

func String() string {
	return fmt.Sprintf("%s version=%s commit=%s date=%s", ServiceName, version, commit, date)
}

// Fields возвращает сведения о сборке в виде полей logrus.
func Fields() log.Fields {
	return log.Fields{
		"service": ServiceName,
		"version": version,
		"commit":  commit,
		"date":    date,
	}
}
