package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/SambhavSurthi/codolio-scraper/bus"
	"github.com/SambhavSurthi/codolio-scraper/data"
	"github.com/SambhavSurthi/codolio-scraper/install"
	"github.com/SambhavSurthi/codolio-scraper/server"
)

// goreleaser will replace version with the Git version. You can also pass
// it into the go build:
//   go build -ldflags="-X main.version=2.1.0"
var version = "2.1.0"

func main() {
	// global options
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flagVersion := flags.Bool("version", false, "Print app version")
	flags.Usage = func() {
		fmt.Println("usage: codoscraper [OPTION]... COMMAND [OPTION]...")
		fmt.Println("Global options:")
		flags.PrintDefaults()
		fmt.Println()
		fmt.Println("Available commands:")
		fmt.Println("  - serve (start the scraper service)")
		fmt.Println("  - log (log bus messages)")
		fmt.Println("  - cache (cache maint, requires server to be running)")
		fmt.Println("  - install-browser (download the pinned browser build)")
		fmt.Println("  - install-service (write the systemd unit file)")
		fmt.Println("  - version (print app version)")
	}

	flags.Parse(os.Args[1:])

	if *flagVersion || (flags.NArg() > 0 && flags.Arg(0) == "version") {
		fmt.Println(version)
		os.Exit(0)
	}

	log.Printf("Codolio scraper %v\n", version)

	// extract sub command and its arguments
	args := flags.Args()

	if len(args) < 1 {
		// run serve command by default
		args = []string{"serve"}
	}

	switch args[0] {
	case "serve":
		if err := server.StartArgs(args[1:], version); err != nil {
			log.Println("Scraper stopped, reason: ", err)
		}
	case "log":
		runLog(args[1:])
	case "cache":
		runCache(args[1:])
	case "install-browser":
		runInstallBrowser(args[1:])
	case "install-service":
		runInstallService(args[1:])
	default:
		log.Fatal("Unknown command; options: serve, log, cache, install-browser, install-service, version")
	}
}

func runLog(args []string) {
	defaultNatsServer := "nats://localhost:4222"
	flags := flag.NewFlagSet("log", flag.ExitOnError)
	flagNatsServer := flags.String("natsServer", defaultNatsServer, "NATS Server")
	flagAuthToken := flags.String("token", "", "Auth token")

	if err := flags.Parse(args); err != nil {
		log.Fatal("error: ", err)
	}

	// only consider env if command line option is something different
	// than default
	natsServer := *flagNatsServer
	if natsServer == defaultNatsServer {
		natsServerE := os.Getenv("CS_NATS_SERVER")
		if natsServerE != "" {
			natsServer = natsServerE
		}
	}

	authToken := *flagAuthToken
	if authToken == "" {
		authToken = os.Getenv("CS_AUTH_TOKEN")
	}

	bus.Log(natsServer, authToken)

	select {}
}

func runCache(args []string) {
	defaultNatsServer := "nats://localhost:4222"
	flags := flag.NewFlagSet("cache", flag.ExitOnError)
	flagNatsServer := flags.String("natsServer", defaultNatsServer, "NATS Server")
	flagAuthToken := flags.String("token", "", "Auth token")
	flagStats := flags.Bool("stats", false, "Print cache stats")
	flagPurge := flags.Bool("purge", false, "Purge all cached profiles")
	flagDelete := flags.String("delete", "", "Delete a cached profile, given as platform/username")

	if err := flags.Parse(args); err != nil {
		log.Fatal("error: ", err)
	}

	// only consider env if command line option is something different
	// than default
	natsServer := *flagNatsServer
	if natsServer == defaultNatsServer {
		natsServerE := os.Getenv("CS_NATS_SERVER")
		if natsServerE != "" {
			natsServer = natsServerE
		}
	}

	authToken := *flagAuthToken
	if authToken == "" {
		authToken = os.Getenv("CS_AUTH_TOKEN")
	}

	nc, err := bus.Connect(natsServer, authToken, "Cache")
	if err != nil {
		log.Println("Error connecting to NATS server: ", err)
		os.Exit(-1)
	}
	defer nc.Close()

	switch {
	case *flagStats:
		var reply data.AdminReply
		err := bus.RequestJSON(nc, bus.SubjectAdmin("cacheStats"), nil,
			&reply, 5*time.Second)
		if err != nil {
			log.Fatal("Error requesting cache stats: ", err)
		}
		if reply.Error != "" {
			log.Fatal("Cache stats failed: ", reply.Error)
		}
		fmt.Printf("profiles: %v, fresh: %v, expired: %v, jobs: %v\n",
			reply.Stats.Profiles, reply.Stats.Fresh,
			reply.Stats.Expired, reply.Stats.Jobs)

	case *flagPurge:
		var reply data.AdminReply
		err := bus.RequestJSON(nc, bus.SubjectAdmin("cachePurge"), nil,
			&reply, 5*time.Second)
		if err != nil {
			log.Fatal("Error purging cache: ", err)
		}
		if reply.Error != "" {
			log.Fatal("Cache purge failed: ", reply.Error)
		}
		log.Println("Purged profiles: ", reply.Removed)

	case *flagDelete != "":
		platform, username, ok := strings.Cut(*flagDelete, "/")
		if !ok {
			log.Fatal("Delete wants platform/username")
		}
		req := data.ScrapeRequest{Platform: platform, Username: username}
		var reply data.AdminReply
		err := bus.RequestJSON(nc, bus.SubjectAdmin("cacheDelete"), req,
			&reply, 5*time.Second)
		if err != nil {
			log.Fatal("Error deleting profile: ", err)
		}
		if reply.Error != "" {
			log.Fatal("Cache delete failed: ", reply.Error)
		}
		log.Println("Deleted: ", *flagDelete)

	default:
		fmt.Println("Error, no operation given.")
		flags.Usage()
	}
}

func runInstallBrowser(args []string) {
	flags := flag.NewFlagSet("install-browser", flag.ExitOnError)
	flagDataDir := flags.String("dataDir", "", "data directory, overrides $CS_DATA")

	if err := flags.Parse(args); err != nil {
		log.Fatal("error: ", err)
	}

	dataDir := *flagDataDir
	if dataDir == "" {
		dataDir = os.Getenv("CS_DATA")
	}
	if dataDir == "" {
		dataDir = "./"
	}

	bin, err := install.Browser(dataDir)
	if err != nil {
		log.Fatal("Error installing browser: ", err)
	}

	log.Println("Browser installed: ", bin)
}

func runInstallService(args []string) {
	flags := flag.NewFlagSet("install-service", flag.ExitOnError)
	flagDest := flags.String("dest", install.DefaultServicePath, "where to write the unit file")

	if err := flags.Parse(args); err != nil {
		log.Fatal("error: ", err)
	}

	if err := install.Service(*flagDest); err != nil {
		log.Fatal("Error installing service: ", err)
	}

	log.Println("Service file written: ", *flagDest)
	log.Println("Run `systemctl daemon-reload && systemctl enable --now codoscraper`")
}
