package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Gurux/gxcommon-go"
	"github.com/Gurux/gxterminal-go"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

var (
	port     = flag.String("S", "", "Port name")
	baudRate = flag.Int("b", 9600, "Baud rate")
	dataBits = flag.Int("d", 8, "DataBits (5, 6, 7, 8)")
	parity   = flag.String("p", "None", "Parity (None, Odd, Even, Mark, Space)")
	stopBits = flag.String("s", "One", "Stop bits (One, OnePointFive, Two)")
	hexMode  = flag.Bool("x", false, "Send input as hexadecimal byte values")
	cr       = flag.Bool("cr", false, "Append carriage return to sent lines")
	lf       = flag.Bool("lf", true, "Append line feed to sent lines")
	t        = flag.String("t", "", "Trace level.")
	lang     = flag.String("lang", "", "Used language.")
	logFile  = flag.String("log", "", "Write a session log to the given file")
	list     = flag.Bool("l", false, "List available serial ports and exit")
)

func listPorts() {
	ports, err := gxterminal.GetPortDetails()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		return
	}
	for _, p := range ports {
		if p.IsUSB {
			fmt.Printf("%s  USB %s:%s %s\n", p.Name, p.VID, p.PID, p.Product)
		} else {
			fmt.Println(p.Name)
		}
	}
}

func openLogger(path string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	return cfg.Build()
}

func main() {
	flag.Parse()
	if *list {
		listPorts()
		return
	}
	if *port == "" {
		flag.PrintDefaults()
		return
	}

	br := gxcommon.BaudRate(*baudRate)
	p, err := gxcommon.ParityParse(*parity)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error parsing parity:", err)
		return
	}
	sb, err := gxcommon.StopBitsParse(*stopBits)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error parsing stop bits:", err)
		return
	}

	var log *zap.Logger
	if *logFile != "" {
		log, err = openLogger(*logFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error opening session log:", err)
			return
		}
		defer log.Sync()
	}

	media := gxterminal.NewGXSerial(*port, br, *dataBits, p, sb)
	if *lang != "" {
		tag, err := language.Parse(*lang)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error parsing language:", err)
			return
		}
		media.Localize(tag)
	}
	if *t != "" {
		tl, err := gxcommon.TraceLevelParse(*t)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return
		}
		if err = media.SetTrace(tl); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return
		}
	}
	media.SetOnTrace(func(e gxcommon.TraceEventArgs) {
		fmt.Printf("Trace: %s\n", e.String())
		if log != nil {
			log.Info("trace", zap.String("event", e.String()))
		}
	})
	media.SetOnError(func(err error) {
		fmt.Fprintln(os.Stderr, "error:", err)
		if log != nil {
			log.Error("media error", zap.Error(err))
		}
	})

	session := gxterminal.NewGXSession(media)
	session.SetOnReceived(func(data []byte) {
		fmt.Printf("RX: %s\n", strconv.Quote(string(data)))
		if log != nil {
			log.Info("rx", zap.Binary("data", data))
		}
	})
	session.SetOnError(func(err error) {
		fmt.Fprintln(os.Stderr, "receive error:", err)
		if log != nil {
			log.Error("receive error", zap.Error(err))
		}
	})

	if err = session.Open(); err != nil {
		fmt.Fprintln(os.Stderr, "error returned:", err)
		ret, err := gxterminal.GetPortNames()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Failed to get available serial ports: ", err)
			return
		}
		fmt.Fprintln(os.Stderr, "Available serial ports: "+strings.Join(ret, ","))
		return
	}
	//Close the connection.
	defer func() {
		if err := session.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "close failed:", err)
		}
	}()

	if err = session.StartReceiver(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return
	}

	hex := *hexMode
	appendCR := *cr
	appendLF := *lf
	fmt.Printf("Connected to %s. Type :help for local commands.\n", media.String())
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, ":") {
			switch cmd := strings.Fields(line); cmd[0] {
			case ":quit", ":q":
				return
			case ":help":
				fmt.Println(":history       show sent commands")
				fmt.Println(":hex on|off    toggle hexadecimal send mode")
				fmt.Println(":cr on|off     toggle carriage return suffix")
				fmt.Println(":lf on|off     toggle line feed suffix")
				fmt.Println(":dtr on|off    set the DTR line")
				fmt.Println(":rts on|off    set the RTS line")
				fmt.Println(":quit          close and exit")
			case ":history":
				for i, h := range session.History() {
					fmt.Printf("%3d  %s\n", i, h)
				}
			case ":hex":
				hex = len(cmd) > 1 && cmd[1] == "on"
				fmt.Println("hex mode:", hex)
			case ":cr":
				appendCR = len(cmd) > 1 && cmd[1] == "on"
				fmt.Println("append CR:", appendCR)
			case ":lf":
				appendLF = len(cmd) > 1 && cmd[1] == "on"
				fmt.Println("append LF:", appendLF)
			case ":dtr":
				session.SetDTR(len(cmd) > 1 && cmd[1] == "on")
			case ":rts":
				session.SetRTS(len(cmd) > 1 && cmd[1] == "on")
			default:
				fmt.Println("unknown command:", cmd[0])
			}
			continue
		}
		if err = session.Send(line, hex, appendCR, appendLF); err != nil {
			fmt.Fprintln(os.Stderr, "send failed:", err)
			continue
		}
		if log != nil {
			log.Info("tx", zap.String("line", line), zap.Bool("hex", hex))
		}
	}
}
