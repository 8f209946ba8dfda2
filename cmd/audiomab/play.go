//go:build unix

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"audiomab/internal/player"
)

var playCmd = &cobra.Command{
	Use:   "play <url>",
	Short: "Play a video, playlist or Apple Music URL through an external player",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

func runPlay(_ *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svcs, err := initializeServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.Close()

	playlist, err := importPlaylist(ctx, svcs, args[0])
	if err != nil {
		return err
	}
	if len(playlist.Tracks) == 0 {
		return fmt.Errorf("%s", svcs.localizer.T("player.end_of_queue"))
	}

	output := player.NewProcessOutput(config.Player.Command, logger.Named("output"))
	controller := player.NewController(player.Options{
		Output:    output,
		Resolver:  svcs.engine,
		Cache:     svcs.offline,
		History:   svcs.library,
		Localizer: svcs.localizer,
		Logger:    logger.Named("player"),
	})
	output.Bind(controller)
	defer controller.Close()

	controller.OnChange(statusPrinter(svcs))

	fmt.Println(svcs.localizer.T("player.help"))
	controller.LoadTrack(playlist.Tracks[0], playlist.Tracks, 0)

	commands := make(chan string)
	go readCommands(commands)

	for {
		select {
		case <-ctx.Done():
			return nil
		case command, ok := <-commands:
			if !ok || command == "q" {
				return nil
			}
			handleCommand(svcs, controller, command)
		}
	}
}

func readCommands(commands chan<- string) {
	defer close(commands)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		commands <- strings.ToLower(scanner.Text())
	}
}

func handleCommand(svcs *services, controller *player.Controller, command string) {
	switch strings.TrimSpace(command) {
	case "n":
		controller.Next()
	case "p":
		controller.Previous()
	case "", "space":
		controller.TogglePlayPause()
	case "s":
		if controller.ToggleShuffle() {
			fmt.Println(svcs.localizer.T("player.shuffle_on"))
		} else {
			fmt.Println(svcs.localizer.T("player.shuffle_off"))
		}
	case "r":
		fmt.Println(svcs.localizer.T("player.repeat", controller.CycleRepeat()))
	default:
		fmt.Println(svcs.localizer.T("player.help"))
	}
}

// statusPrinter prints one line per state transition.
func statusPrinter(svcs *services) func(player.Snapshot) {
	var last string
	return func(s player.Snapshot) {
		var line string
		switch {
		case s.Track == nil:
			return
		case s.State == player.StateLoading:
			line = svcs.localizer.T("player.loading", formatTrack(svcs, *s.Track))
		case s.State == player.StatePlaying:
			line = svcs.localizer.T("player.now_playing", formatTrack(svcs, *s.Track))
		case s.State == player.StatePaused:
			line = svcs.localizer.T("player.paused")
		case s.State == player.StateErrored:
			line = s.Error
		}
		if line != "" && line != last {
			fmt.Println(line)
			last = line
		}
	}
}
