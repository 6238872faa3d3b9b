package timer

import (
	"log"
	"os"
)

func testLog() *log.Logger {
	return log.New(os.Stdout, "test: ", 0)
}
