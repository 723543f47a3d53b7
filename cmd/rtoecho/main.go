// Command rtoecho is a minimal demonstration of an rto.Context running over
// a real TCP connection: the server exports an Echo object at
// ObjectIdInitial; the client imports it and echoes each line of stdin off
// the server.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"

	"github.com/go-rto/rto"
	"github.com/go-rto/rto/rtoexamples"
)

var (
	listenAddr = flag.String("listen", "", "run as server, listening on `addr`")
	dialAddr   = flag.String("dial", "", "run as client, dialing `addr`")
)

func main() {
	flag.Parse()
	var err error
	switch {
	case *listenAddr != "":
		err = runServer(*listenAddr)
	case *dialAddr != "":
		err = runClient(*dialAddr)
	default:
		fmt.Fprintln(os.Stderr, "usage: rtoecho -listen addr | -dial addr")
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func runServer(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Printf("rtoecho: listening on %s", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go serveConn(conn)
	}
}

func serveConn(conn net.Conn) {
	defer conn.Close()
	initial := &rto.InitialService{Export: rtoexamples.NewEchoSkeleton()}
	ctx := rto.NewContext(newTCPTransport(conn), rto.DefaultConfig(), initial, nil)
	log.Printf("rtoecho: serving %s", conn.RemoteAddr())
	<-ctx.Done()
	log.Printf("rtoecho: %s disconnected", conn.RemoteAddr())
}

func runClient(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	rtoCtx := rto.NewContext(newTCPTransport(conn), rto.DefaultConfig(), nil, nil)
	defer rtoCtx.Close()

	echo := rtoexamples.NewEchoProxy(rtoCtx.ImportFromHandle(rto.HandleToExchange{ID: rto.ObjectIdInitial}))

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		got, err := rtoexamples.Echo(context.Background(), echo, scanner.Text())
		if err != nil {
			return err
		}
		fmt.Println(got)
	}
	return scanner.Err()
}
