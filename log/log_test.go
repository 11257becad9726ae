package log

import (
	"bytes"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
	"github.com/vidresolve/vidresolve/key"
)

func TestSetup(t *testing.T) {
	Convey("Given logging is disabled", t, func() {
		viper.Set(key.LogsWrite, false)
		So(Setup(), ShouldBeNil)

		Convey("Emissions are dropped", func() {
			So(enabled, ShouldBeFalse)
			So(logrus.StandardLogger().Out, ShouldResemble, io.Discard)
		})
	})
}

func TestSetOutput(t *testing.T) {
	Convey("Given an explicit writer", t, func() {
		var buf bytes.Buffer
		SetOutput(&buf)
		logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
		defer SetOutput(io.Discard)

		Convey("Wrappers write through logrus", func() {
			Infof("resolved %d urls", 3)
			So(buf.String(), ShouldContainSubstring, "resolved 3 urls")
		})

		Convey("Fields are rendered", func() {
			WithFields(Fields{"host": "sibnet"}).Info("extracted")
			So(buf.String(), ShouldContainSubstring, "host=sibnet")
		})
	})
}
