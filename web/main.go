package main

import (
	"flag"
	"log"
	"os"

	"github.com/df07/go-raymarcher/web/server"
)

func main() {
	port := flag.Int("port", 8080, "Port to serve on")
	static := flag.String("static", "static", "Directory of static files")
	flag.Parse()

	webServer := server.NewServer(*port, *static)

	log.Printf("Progressive Raymarcher Web Server")
	log.Printf("Visit http://localhost:%d to start rendering", *port)

	if err := webServer.Start(); err != nil {
		log.Printf("Error starting server: %v", err)
		os.Exit(1)
	}
}
