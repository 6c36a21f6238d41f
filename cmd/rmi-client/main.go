// Command rmi-client connects once, issues a single RMI command named by
// its arguments, waits for the result, prints it, and exits. It drives the
// same client API a GUI controller would; there is no GUI here.
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/l16dev/rmi/internal/client"
	"github.com/l16dev/rmi/internal/version"
)

// connectTimeout bounds how long main waits for the worker to report
// Connected or Error after Connect returns.
const connectTimeout = 6 * time.Second

// resultTimeout bounds how long main waits for a queued request's result
// to show up in the relevant store before giving up.
const resultTimeout = 20 * time.Second

func main() {
	host := flag.String("host", "127.0.0.1", "server host")
	port := flag.Int("port", 1234, "server port")
	user := flag.String("user", "l16", "username")
	pass := flag.String("pass", "l16", "password")
	flag.Parse()

	log.SetFlags(log.LstdFlags)
	log.Printf("rmi-client v%s (built %s)", version.Version, version.BuildTime)

	args := flag.Args()
	if len(args) < 1 {
		log.Fatalf("usage: %s [flags] <version|list|download|upload|screencap|press|press_input|open|delete|quit|restart> [args...]", os.Args[0])
	}
	cmdName, cmdArgs := args[0], args[1:]

	c := client.New()
	if err := c.Connect(client.Config{Host: *host, Port: *port, Username: *user, Password: *pass}); err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()

	if err := waitStatus(c, connectTimeout); err != nil {
		log.Fatalf("connect: %v", err)
	}

	if err := runCommand(c, cmdName, cmdArgs); err != nil {
		log.Fatalf("%s: %v", cmdName, err)
	}
}

// waitStatus blocks until the worker reaches Connected or Error.
func waitStatus(c *client.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		switch c.Status() {
		case client.StatusConnected:
			return nil
		case client.StatusError:
			return errorf(c.LastError())
		}
		time.Sleep(10 * time.Millisecond)
	}
	return errorf("timed out waiting to connect")
}

type stringError string

func (e stringError) Error() string { return string(e) }

func errorf(msg string) error { return stringError(msg) }
