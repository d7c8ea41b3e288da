// Package cloudlink implements a device-side session manager for exchanging
// short messages with a remote cloud endpoint over TCP stream sockets or,
// when the underlying modem exposes its own AT-command socket abstraction,
// over that delegated transport.
//
// The package provides the outbound send-socket lifecycle, an inbound
// accept-and-buffer pipeline for messages pushed from the cloud, and a
// single-slot periodic send scheduler. Credential handling, the AT-command
// protocol itself, and network bring-up are collaborator concerns consumed
// through the interfaces in the network subpackage.
//
// # Getting Started
//
// Create a Cloud from a connection configuration and send a message:
//
//	cfg := config.Config{
//	    Send:    config.Endpoint{Host: "cloudsocket.example.com", Port: 9999},
//	    Receive: config.Endpoint{Host: "0.0.0.0", Port: 4010},
//	}
//
//	cloud, err := cloudlink.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reply, err := cloud.SendMessage("hello cloud")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(reply)
//
// Inbound messages are accepted on the receive socket and buffered until
// the application polls for them:
//
//	if _, err := cloud.InitializeReceiveSocket(); err != nil {
//	    log.Fatal(err)
//	}
//	defer cloud.CloseReceiveSocket()
//
//	for {
//	    if msg, ok := cloud.PopReceivedMessage(); ok {
//	        fmt.Println("received:", msg)
//	    }
//	    time.Sleep(time.Second)
//	}
//
// A periodic job repeats a send at a fixed interval until stopped or until
// a send fails:
//
//	if err := cloud.SendPeriodicMessage(30*time.Second, "heartbeat", nil, 0); err != nil {
//	    log.Fatal(err)
//	}
//	defer cloud.StopPeriodicMessage()
//
// Messages are arbitrary byte payloads framed only by the peer closing or
// going idle; this package does not define a message structure.
package cloudlink
