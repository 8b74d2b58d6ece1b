package config

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lifeview/viewport"

	. "github.com/smartystreets/goconvey/convey"
)

func writeConfig(dir, body string) string {
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		panic(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	Convey("The defaults", t, func() {
		cfg := Default()

		So(cfg.Remote.BaseURL, ShouldEqual, "http://localhost:3000/api")
		So(cfg.RemoteTimeout(), ShouldEqual, 2*time.Second)
		So(cfg.SyncInterval(), ShouldEqual, 100*time.Millisecond)
		So(cfg.PublishInterval(), ShouldEqual, 50*time.Millisecond)
		So(cfg.ViewState(), ShouldResemble, viewport.DefaultViewState())
		So(cfg.RenderPalette().Cell, ShouldResemble, color.RGBA{R: 0xa7, G: 0x8b, B: 0xfa, A: 0xff})
		So(cfg.Server.Addr, ShouldEqual, ":8080")
	})
}

func TestFromYaml(t *testing.T) {
	Convey("Given a config file", t, func() {
		dir := t.TempDir()

		Convey("The shipped config matches the defaults", func() {
			cfg, err := FromYaml("../config.yaml")
			So(err, ShouldBeNil)
			So(cfg, ShouldResemble, Default())
		})

		Convey("Present keys override defaults, case-insensitively", func() {
			cfg, err := FromYaml(writeConfig(dir, `
kind: lifeview
def:
  remote:
    baseUrl: http://sim:9000/api
  sync:
    interval: 250ms
  view:
    scale: 500
  palette:
    cell: "#ff0000"
`))
			So(err, ShouldBeNil)
			So(cfg.Remote.BaseURL, ShouldEqual, "http://sim:9000/api")
			So(cfg.SyncInterval(), ShouldEqual, 250*time.Millisecond)
			So(cfg.View.Scale, ShouldEqual, viewport.MaxScale)
			So(cfg.View.Width, ShouldEqual, 960)
			So(cfg.RenderPalette().Cell, ShouldResemble, color.RGBA{R: 0xff, A: 0xff})
			So(cfg.RemoteTimeout(), ShouldEqual, 2*time.Second)
		})

		Convey("A foreign kind is rejected", func() {
			_, err := FromYaml(writeConfig(dir, "kind: training\ndef:\n  sync:\n    interval: 1s\n"))
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("A non-positive interval is rejected", func() {
			_, err := FromYaml(writeConfig(dir, "kind: lifeview\ndef:\n  sync:\n    interval: 0s\n"))
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("A malformed duration is rejected", func() {
			_, err := FromYaml(writeConfig(dir, "kind: lifeview\ndef:\n  remote:\n    timeout: soon\n"))
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("A malformed color is rejected", func() {
			_, err := FromYaml(writeConfig(dir, "kind: lifeview\ndef:\n  palette:\n    grid: purple\n"))
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "palette.grid")
		})

		Convey("Each palette key is parsed into its own color", func() {
			cfg, err := FromYaml(writeConfig(dir, `
kind: lifeview
def:
  palette:
    background: "#000001"
    grid: "#000100"
    cell: "#010000"
`))
			So(err, ShouldBeNil)
			palette := cfg.RenderPalette()
			So(palette.Background, ShouldResemble, color.RGBA{B: 0x01, A: 0xff})
			So(palette.Grid, ShouldResemble, color.RGBA{G: 0x01, A: 0xff})
			So(palette.Cell, ShouldResemble, color.RGBA{R: 0x01, A: 0xff})
		})

		Convey("A missing file is an error", func() {
			_, err := FromYaml(filepath.Join(dir, "nope.yaml"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestWithListen(t *testing.T) {
	Convey("Host and port flags override the listen address", t, func() {
		cfg := Default()
		cfg.WithListen("", 0)
		So(cfg.Server.Addr, ShouldEqual, ":8080")

		cfg.WithListen("127.0.0.1", 0)
		So(cfg.Server.Addr, ShouldEqual, "127.0.0.1:8080")

		cfg.WithListen("", 9090)
		So(cfg.Server.Addr, ShouldEqual, "127.0.0.1:9090")
	})
}
