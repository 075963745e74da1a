package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewWireLogger returns a logrus entry for gosnmp's packet trace. It
// satisfies gosnmp.LoggerInterface (Print and Printf).
func NewWireLogger(w io.Writer) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.TraceLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})
	return l.WithField("component", "snmp")
}
