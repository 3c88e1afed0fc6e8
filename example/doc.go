/*
Package main contains a command-line serial terminal built on gxterminal.

The example shows how to:
  - configure a serial connection from command-line flags
  - register trace and error callbacks, optionally logged with zap
  - run the background receiver and print inbound bytes
  - send typed lines in plain or HEX mode with CR/LF suffixes
  - recall earlier commands from the session history
*/
package main
