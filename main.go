/*
This is an example of application that will use the
geometry pool to stage and commit scene geometry
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/geopool/engine/config"
	"github.com/spaghettifunk/geopool/engine/core"
	"github.com/spaghettifunk/geopool/engine/renderer"
	"github.com/spaghettifunk/geopool/engine/renderer/memorybe"
	"github.com/spaghettifunk/geopool/engine/renderer/vulkan"
	"github.com/spaghettifunk/geopool/testbed"
)

func main() {
	configPath := flag.String("config", "geopool.toml", "path to the TOML configuration file")
	backendName := flag.String("backend", "memory", "renderer backend: memory or vulkan")
	frames := flag.Int("frames", 120, "number of frames to run")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	core.SetLogLevel(cfg.Log.Level)

	var backend renderer.Backend
	switch *backendName {
	case "vulkan":
		vkBackend := vulkan.New()
		if err := vkBackend.Initialize("GeoPool Testbed"); err != nil {
			panic(err)
		}
		backend = vkBackend
	default:
		backend = memorybe.New()
	}

	game, err := testbed.NewTestGame(cfg, *configPath, backend)
	if err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		// capture sigterm and other system call here
		<-sigCh
		_ = game.Shutdown()
	}()

	if err := game.Run(*frames); err != nil {
		panic(err)
	}
	if err := game.Cleanup(); err != nil {
		panic(err)
	}
}
