// Command fakeredis runs internal/fakeredis standalone, for manually
// exercising the splitter against a disposable upstream node.
package main

import (
	"flag"

	"redisplit/internal/fakeredis"
	"redisplit/lib/logger"
	"redisplit/tcp"
)

func main() {
	bind := flag.String("bind", "127.0.0.1:0", "address to listen on")
	flag.Parse()

	logger.Setup(&logger.Settings{
		Path:       "./log",
		Name:       "fakeredis",
		Ext:        "log",
		TimeFormat: "2006-01-02",
	})

	err := tcp.ListenAndServeWithSignal(&tcp.Config{Address: *bind}, fakeredis.NewHandler())
	if err != nil {
		logger.Error(err)
	}
}
