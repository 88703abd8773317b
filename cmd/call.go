package cmd

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/faizanamer123/openassign-call/internal/call"
	"github.com/faizanamer123/openassign-call/internal/config"
	"github.com/faizanamer123/openassign-call/internal/ident"
	"github.com/faizanamer123/openassign-call/internal/logging"
	"github.com/faizanamer123/openassign-call/internal/ui"
)

var (
	flagServer   string
	flagSTUN     []string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
	flagID       string
	flagNoAudio  bool
	flagNoVideo  bool
	flagNoUI     bool
	flagLogFile  string
)

var callCmd = &cobra.Command{
	Use:     "call [room]",
	Aliases: []string{"c"},
	Short:   "Join a call room",
	Long: `Join a call room, creating it if needed. Without a room name a new one
is generated; share it with the other side.

Examples:
  assigncall call
  assigncall call lucky-otter
  assigncall call --server wss://relay.example.com/ws --relay --turn turn.example.com lucky-otter`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(config.Options{
			File:         flagConfig,
			SignalingURL: flagServer,
			STUNServers:  flagSTUN,
			TURNServer:   flagTURN,
			TURNUser:     flagTURNUser,
			TURNPass:     flagTURNPass,
			ForceRelay:   flagRelay,
			LogLevel:     flagLogLevel,
		})
		if err != nil {
			return err
		}

		var room string
		if len(args) == 1 {
			room = args[0]
		} else {
			room = newRoomName(cmd.Context(), cfg.SignalingURL)
		}
		id := flagID
		if id == "" {
			id = ident.NewParticipantID()
		}

		log, closeLog, err := callLogger(cfg)
		if err != nil {
			return err
		}
		defer closeLog()

		return runCall(cmd, cfg, room, id, log)
	},
}

// callLogger keeps log output off the terminal while the call view owns it.
func callLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	if flagLogFile != "" {
		f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, call.NewError("open log file", err)
		}
		return logging.InitTo(f, logging.ParseLevel(cfg.LogLevel, slog.LevelInfo)), func() { f.Close() }, nil
	}
	if !flagNoUI {
		return logging.InitTo(io.Discard, slog.LevelError), func() {}, nil
	}
	return logging.Init(cfg.LogLevel, slog.LevelWarn), func() {}, nil
}

func runCall(cmd *cobra.Command, cfg *config.Config, room, id string, log *slog.Logger) error {
	media := call.NewSyntheticSource(!flagNoAudio, !flagNoVideo)
	session := NewCallSession(cfg, room, id, media, log)

	var view *ui.CallUI
	if !flagNoUI {
		view = ui.NewCallUI(room, id, session.Adapter.MediaState(), ui.Controls{
			ToggleAudio: session.ToggleAudio,
			ToggleVideo: session.ToggleVideo,
			Hangup:      session.Hangup,
		})
		session.AttachView(view)
		view.Start()
		defer view.Stop()
	} else {
		ui.PrintInfof("Joining room %s as %s", room, id)
	}

	go func() {
		<-cmd.Context().Done()
		session.Hangup()
	}()

	err := session.Adapter.Run(cmd.Context())

	if view != nil {
		closed := call.StateClosed
		view.Send(ui.CallUpdate{State: &closed, Err: err})
		view.Wait()
	}

	status := "Ended"
	switch {
	case errors.Is(err, call.ErrPeerLeft):
		status = "Peer hung up"
		err = nil
	case err != nil:
		status = "Failed"
	}

	ui.RenderCallSummary(ui.Output, ui.CallSummary{
		Room:     room,
		Status:   status,
		Duration: session.Duration(),
		Relay:    session.RelayMode(),
	})
	return err
}

func init() {
	rootCmd.AddCommand(callCmd)

	callCmd.Flags().StringVarP(&flagServer, "server", "s", "", "Signaling server URL (ws:// or wss://)")
	callCmd.Flags().StringSliceVar(&flagSTUN, "stun", nil, "Custom STUN server (repeatable)")
	callCmd.Flags().StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	callCmd.Flags().StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	callCmd.Flags().StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	callCmd.Flags().BoolVarP(&flagRelay, "relay", "r", false, "Force relay mode")
	callCmd.Flags().StringVar(&flagID, "id", "", "Participant id (generated by default)")
	callCmd.Flags().BoolVar(&flagNoAudio, "no-audio", false, "Join without audio")
	callCmd.Flags().BoolVar(&flagNoVideo, "no-video", false, "Join without video")
	callCmd.Flags().BoolVar(&flagNoUI, "no-ui", false, "Print plain status lines instead of the live view")
	callCmd.Flags().StringVar(&flagLogFile, "log-file", "", "Write logs to this file")
}
