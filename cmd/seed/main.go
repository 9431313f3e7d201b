package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/artesarh/rpb/client"
)

func run() error {
	url := flag.String("url", "http://localhost:8000", "Url of the reporting server")
	username := flag.String("username", "", "Username to authenticate with")
	password := flag.String("password", "", "Password to authenticate with")
	file := flag.String("file", "", "Yaml fixture to load")

	flag.Parse()

	if *username == "" || *password == "" || *file == "" {
		return fmt.Errorf("--username, --password and --file must be specified")
	}

	f, err := loadFixture(*file)
	if err != nil {
		return err
	}

	c := client.NewReportingClient(*url)
	if err := c.Login(*username, *password); err != nil {
		return err
	}

	if _, err := newSeeder(c).apply(f); err != nil {
		return err
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}
