package main

import (
	"log"

	"contactkeeper/internal/server"
	"contactkeeper/internal/server/config"
)

func main() {

	cfg := config.LoadConfig()
	app, err := server.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run()

}
