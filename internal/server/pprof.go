package server

import (
	"log"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
)

// StartPprofServer serves pprof on its own port, kept off the public
// listener so profiling never rides the API surface.
func StartPprofServer(port string) {
	pprofRouter := gin.New()
	pprof.Register(pprofRouter)

	go func() {
		log.Printf("pprof listening on %s", port)
		if err := pprofRouter.Run(port); err != nil {
			log.Fatalf("pprof server failed: %v", err)
		}
	}()
}
