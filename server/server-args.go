package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"syscall"
	"time"

	"github.com/oklog/run"
)

// StartArgs starts the scraper service with command line style args
func StartArgs(args []string, appVersion string) error {
	options, err := Args(args, appVersion)
	if err != nil {
		return err
	}

	var g run.Group

	srv, _, err := NewServer(options)

	if err != nil {
		srv.Stop(nil)
		return fmt.Errorf("Error starting server: %v", err)
	}

	g.Add(srv.Run, srv.Stop)

	g.Add(run.SignalHandler(context.Background(),
		syscall.SIGINT, syscall.SIGTERM))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*9)

	// add check to make sure server started
	chStartCheck := make(chan struct{})
	g.Add(func() error {
		err := srv.WaitStart(ctx)
		if err != nil {
			return errors.New("Timeout waiting for server to start")
		}
		log.Println("Codolio scraper started, port:", options.Port)
		<-chStartCheck
		return nil
	}, func(err error) {
		cancel()
		close(chStartCheck)
	})

	return g.Run()
}
