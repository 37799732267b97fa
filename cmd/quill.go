package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/indieinfra/quill/config"
	"github.com/indieinfra/quill/server"
)

func main() {
	log.SetPrefix("quill: ")
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile | log.Lmsgprefix)

	configFile := flag.String("config", "config.yml", "Path to the configuration file (i.e., /etc/quill.yaml)")
	flag.Parse()

	if len(strings.Trim(*configFile, " ")) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	log.Println("loading configuration...")
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Printf("failed to load configuration: %v", err)
		os.Exit(1)
	}

	log.Println("starting http server...")
	if err := server.StartServer(cfg); err != nil {
		log.Fatal(err)
	}
}
