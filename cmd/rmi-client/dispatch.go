package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/l16dev/rmi/internal/client"
)

// runCommand issues one command against c and blocks until its result is
// available, printing it to stdout.
func runCommand(c *client.Client, name string, args []string) error {
	switch name {
	case "version":
		return runVersion(c)
	case "list":
		return runList(c, args)
	case "download":
		return runDownload(c, args)
	case "upload":
		return runUpload(c, args)
	case "screencap":
		return runScreencap(c, args)
	case "press":
		return runPress(c, args, c.SendPress)
	case "press_input":
		return runPress(c, args, c.SendPressInput)
	case "open":
		return runOpen(c, args)
	case "delete":
		return runDelete(c, args)
	case "quit":
		return runFireAndForget(c, c.SendQuit)
	case "restart":
		return runFireAndForget(c, c.SendRestart)
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func waitUntil(timeout time.Duration, ready func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ready() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func runVersion(c *client.Client) error {
	if err := c.RequestVersion(); err != nil {
		return err
	}
	var info client.VersionInfo
	waitUntil(resultTimeout, func() bool {
		info = c.GetVersionInfo()
		return info.Version > 0
	})
	if info.Err != "" {
		return errorf(info.Err)
	}
	fmt.Println(info.Value)
	return nil
}

func runList(c *client.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: list <path>")
	}
	path := args[0]
	if err := c.RequestList(path); err != nil {
		return err
	}
	var result client.ListResult
	waitUntil(resultTimeout, func() bool {
		var ok bool
		result, ok = c.GetFileList(path)
		return ok
	})
	if result.Err != "" {
		return errorf(result.Err)
	}
	for _, e := range result.Entries {
		if e.IsDir {
			fmt.Printf("D\t%s\n", e.Name)
		} else {
			fmt.Printf("F\t%s\t%d\n", e.Name, e.Size)
		}
	}
	return nil
}

func runDownload(c *client.Client, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: download <remote-path> <local-path>")
	}
	remote, local := args[0], args[1]
	if err := c.RequestDownload(remote); err != nil {
		return err
	}
	var result client.DownloadResult
	waitUntil(resultTimeout, func() bool {
		var ok bool
		result, ok = c.GetDownloadResult(remote)
		return ok && !result.InProgress
	})
	if result.Err != "" {
		return errorf(result.Err)
	}
	if err := os.WriteFile(local, result.Data, 0644); err != nil {
		return err
	}
	fmt.Printf("downloaded %s (%s)\n", remote, humanize.Bytes(result.Total))
	return nil
}

func runUpload(c *client.Client, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: upload <local-path> <remote-path> [--restart]")
	}
	local, remote := args[0], args[1]
	restart := len(args) > 2 && args[2] == "--restart"
	c.ResetLastError()
	var err error
	if restart {
		err = c.UploadFileAndRestart(local, remote)
	} else {
		err = c.UploadFile(local, remote)
	}
	if err != nil {
		return err
	}
	waitUntil(resultTimeout, func() bool { return c.Status() != client.StatusConnected || c.LastError() != "" })
	if msg := c.LastError(); msg != "" {
		return errorf(msg)
	}
	fmt.Println("OK")
	return nil
}

func runScreencap(c *client.Client, args []string) error {
	if err := c.RequestScreencap(); err != nil {
		return err
	}
	var result client.ScreencapResult
	waitUntil(resultTimeout, func() bool {
		result = c.GetScreencapImage()
		return result.Version > 0
	})
	if result.Err != "" {
		return errorf(result.Err)
	}
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	path, err := c.SaveLastScreencap(dir)
	if err != nil {
		return err
	}
	fmt.Printf("saved %s (%dx%d)\n", path, result.Width, result.Height)
	return nil
}

func runPress(c *client.Client, args []string, send func(int) error) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: press <keycode>")
	}
	code, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid keycode %q: %w", args[0], err)
	}
	return runFireAndForget(c, func() error { return send(code) })
}

func runOpen(c *client.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: open <target>")
	}
	target := args[0]
	return runFireAndForget(c, func() error { return c.SendOpen(target) })
}

func runDelete(c *client.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: delete <path>")
	}
	path := args[0]
	return runFireAndForget(c, func() error { return c.RequestDelete(path) })
}

// runFireAndForget enqueues an Ok-kind request via enqueue and waits for
// lastError to reflect its outcome (or the connection to leave Connected,
// for QUIT/RESTART).
func runFireAndForget(c *client.Client, enqueue func() error) error {
	c.ResetLastError()
	if err := enqueue(); err != nil {
		return err
	}
	waitUntil(resultTimeout, func() bool {
		return c.Status() != client.StatusConnected || c.LastError() != ""
	})
	if msg := c.LastError(); msg != "" {
		return errorf(msg)
	}
	fmt.Println("OK")
	return nil
}
