package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mindfull/backend/internal/config"
	"github.com/mindfull/backend/internal/rtc"
	"github.com/mindfull/backend/pkg/auth"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	token     string
	room      string
	role      string
)

var rootCmd = &cobra.Command{
	Use:   "sessionpeer",
	Short: "Headless client for MindFull video sessions",
	Long: `sessionpeer joins a MindFull session room as a WebRTC peer.

It connects to the signaling server, publishes a static audio and video
feed, and negotiates a peer connection with whoever else is in the room.
Useful for exercising the signaling path without a browser.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVarP(&serverURL, "server", "s", "ws://localhost:8080/ws", "signaling server URL")
	rootCmd.Flags().StringVarP(&token, "token", "t", "", "access token from /api/auth/login")
	rootCmd.Flags().StringVarP(&room, "room", "r", "", "session code to join")
	rootCmd.Flags().StringVar(&role, "role", "student", "participant role (student or counsellor)")
	rootCmd.MarkFlagRequired("token")
	rootCmd.MarkFlagRequired("room")
}

func run(cmd *cobra.Command, args []string) error {
	// The token identifies us; the server verifies the signature, we only
	// need the claims.
	claims := &auth.Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("unreadable token: %w", err)
	}

	channel, err := rtc.Dial(serverURL, token)
	if err != nil {
		return fmt.Errorf("connect to signaling server: %w", err)
	}

	cfg := config.Load()
	client := rtc.NewClient(
		rtc.Config{UserID: claims.UserID, Role: role, Room: room},
		channel,
		rtc.NewPeerFactory(&cfg.WebRTC),
		rtc.NewStaticMedia,
	)
	client.OnStatus(func(s rtc.Status) {
		log.Printf("Status: %s", s)
	})

	if err := client.Start(); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	log.Printf("Joined room %s as %s (%s)", room, claims.Username, role)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case <-client.Done():
	case <-interrupt:
		log.Println("Interrupted, leaving session")
		client.Close()
		<-client.Done()
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
