package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/filedepot/filedepot/pkg/server"
)

const logSavePath = "logs.txt"

const consoleHelp = `Available commands:
  .start            start the server
  .restart          stop and start the server again
  .shutdown         stop the server and flush the catalog
  .status           show the server state
  .connections      list active client connections
  .log [--info|--warn|--error]
                    print the buffered log events, optionally by level
  .clear            drop the buffered log events
  .help             show this overview
  .end [--save]     end the session; --save writes the logs to ` + logSavePath

// RunConsole reads administrator commands line by line until .end. Commands
// run synchronously, so a command in flight blocks the next one.
func RunConsole(srv *server.Server, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		command, args := fields[0], fields[1:]

		if command == ".end" {
			if srv.Running() {
				fmt.Fprintln(out, "The server is still running. Shut it down before ending the session.")
				continue
			}
			if len(args) > 0 && args[0] == "--save" {
				if err := LogBuffer.Save(logSavePath); err != nil {
					fmt.Fprintf(out, "Unable to save the logs: %s\n", err)
				} else {
					fmt.Fprintf(out, "Logs saved to %s\n", logSavePath)
				}
			}
			fmt.Fprintln(out, "Session ended.")
			return
		}

		runCommand(srv, out, command, args)
	}

	// Input ended without .end. Stop the server so the catalog still gets
	// flushed to disk.
	if srv.Running() {
		if err := srv.Shutdown(); err != nil {
			fmt.Fprintf(out, "Unable to shut down: %s\n", err)
			return
		}
		fmt.Fprintln(out, "Input ended, server stopped and catalog flushed.")
	}
}

func runCommand(srv *server.Server, out io.Writer, command string, args []string) {
	switch command {
	case ".start":
		if err := srv.Start(); err != nil {
			fmt.Fprintf(out, "Unable to start: %s\n", err)
			return
		}
		fmt.Fprintf(out, "Server started on %s\n", srv.Addr())

	case ".restart":
		if err := srv.Restart(); err != nil {
			fmt.Fprintf(out, "Unable to restart: %s\n", err)
			return
		}
		fmt.Fprintf(out, "Server restarted on %s\n", srv.Addr())

	case ".shutdown":
		if err := srv.Shutdown(); err != nil {
			fmt.Fprintf(out, "Unable to shut down: %s\n", err)
			return
		}
		fmt.Fprintln(out, "Server stopped, catalog flushed.")

	case ".status":
		state := "stopped"
		if srv.Running() {
			state = "running"
		}
		fmt.Fprintf(out, "state: %s\naddress: %s\nconnections: %d\nin flight: %d\n",
			state, srv.Addr(), len(srv.Connections()), srv.InFlight())

	case ".connections":
		remotes := srv.Connections()
		if len(remotes) == 0 {
			fmt.Fprintln(out, "No active connections.")
			return
		}
		for _, remote := range remotes {
			fmt.Fprintln(out, remote)
		}

	case ".log":
		level := ""
		if len(args) > 0 {
			level = strings.TrimPrefix(args[0], "--")
		}
		fmt.Fprintln(out, LogBuffer.Render(level))

	case ".clear":
		LogBuffer.Clear()
		fmt.Fprintln(out, "Log buffer cleared.")

	case ".help":
		fmt.Fprintln(out, consoleHelp)

	default:
		fmt.Fprintf(out, "Unknown command %q. Type .help for an overview.\n", command)
	}
}
