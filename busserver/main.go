package main

import (
	"context"
	"crypto"
	"crypto/hmac"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/BertoldVdb/go-misc/httplog"
	"github.com/BertoldVdb/softi2c/busconfig"
	"github.com/BertoldVdb/softi2c/busserver/api"
	"github.com/BertoldVdb/softi2c/busserver/discovery"
	"github.com/BertoldVdb/softi2c/softi2c"
	"github.com/BertoldVdb/softi2c/softi2c/busopen"
)

func main() {
	apiKey := flag.String("apikey", "", "API key to use")
	address := flag.String("addr", busconfig.DefaultServerAddr, "Address to listen on")
	configFile := flag.String("config", "", "YAML bus configuration, replaces the bus arguments")
	announce := flag.String("announce", "", "Announce the buses over mDNS on this interface")
	logSize := flag.Int("logsize", api.DefaultLogSize, "Number of transactions kept for /log")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")

	flag.Parse()

	if *apiKey != "" {
		user, pass := authCalculate(*apiKey, "bench", time.Now().AddDate(10, 0, 0))
		log.Printf("Password for username '%s': %s", user, pass)
	}

	closeChan := make(chan os.Signal, 1)
	signal.Notify(closeChan, os.Interrupt)

	logOut := softi2c.LogFunc(log.Printf)
	if !*verbose {
		logOut = nil
	}

	var buses []*softi2c.Bus
	if *configFile != "" {
		cfg, err := busconfig.Load(*configFile)
		if err != nil {
			log.Fatalln(err)
		}
		if !isFlagSet("addr") {
			*address = cfg.Server.Addr
		}
		if *announce == "" && cfg.Server.Announce {
			*announce = cfg.Server.Iface
		}

		log.Printf("Initializing bus '%s':", cfg.Bus)
		bus, err := cfg.Open(logOut)
		if err != nil {
			log.Fatalln(" -> Failed to open:", err)
		}
		buses = append(buses, bus)
	}

	for _, m := range flag.Args() {
		log.Printf("Initializing bus '%s':", m)

		bus, err := busopen.OpenBus(m, logOut)
		if err != nil {
			log.Printf(" -> Failed to open: %v", err)
			continue
		}
		buses = append(buses, bus)
	}

	var mux http.ServeMux
	names := make([]string, 0, len(buses))
	seen := make(map[string]bool)

	for i, bus := range buses {
		defer bus.Close()

		name := bus.String()
		if seen[name] {
			name = name + "-" + strconv.Itoa(i)
		}
		seen[name] = true

		api, err := api.New(bus, *logSize)
		if err != nil {
			log.Println(" -> Failed to create API:", err)
			return
		}

		log.Printf(" -> Registering as '%s' and '%d'", name, i)
		mux.Handle("/"+name+"/", http.StripPrefix("/"+name, api))
		mux.Handle("/"+strconv.Itoa(i)+"/", http.StripPrefix("/"+strconv.Itoa(i), api))

		names = append(names, name)
	}

	if len(names) == 0 {
		log.Println("No buses available")
		return
	}

	namesJson, err := json.MarshalIndent(&names, "", "  ")
	if err != nil {
		log.Println(err)
		return
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(namesJson)
	})

	logger := httplog.HTTPLog{
		LogOut:     log.Printf,
		ServerName: "SoftI2C",
	}

	server := &http.Server{
		Addr:    *address,
		Handler: logger.GetHandler(authProcess(mux.ServeHTTP, *apiKey)),

		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       30 * time.Second,
		ReadHeaderTimeout: 30 * time.Second,
	}

	if *announce != "" {
		port, err := listenPort(*address)
		if err != nil {
			log.Fatalln("Cannot announce:", err)
		}

		for _, name := range names {
			d := discovery.NewServer(name, name, port)
			if err := d.Start(*announce, 30*time.Second); err != nil {
				log.Printf("Failed to announce '%s': %v", name, err)
				continue
			}
			defer d.Stop()
			log.Printf("Announced '%s' at %s", name, d.CurrentAddress())
		}
	}

	go func() {
		log.Printf("Starting server on: http://%s", *address)
		log.Println("Server stopped:", server.ListenAndServe())

		select {
		case closeChan <- nil:
		default:
		}
	}()

	<-closeChan
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	server.Shutdown(ctx)
	cancel()
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func listenPort(address string) (int, error) {
	_, port, err := net.SplitHostPort(address)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(port)
}

func authCalculate(authKey string, suffix string, expiry time.Time) (string, string) {
	user := strconv.FormatInt(expiry.Unix(), 10)

	if suffix != "" {
		user += "$" + suffix
	}

	h := hmac.New(crypto.SHA256.New, []byte(authKey))
	h.Write([]byte(user))
	return user, hex.EncodeToString(h.Sum(nil))
}

// authProcess accepts basic auth where the password is the HMAC of the user
// name and the user name starts with its expiry time.
func authProcess(handler http.HandlerFunc, authKey string) http.HandlerFunc {
	if len(authKey) == 0 {
		return handler
	}

	failed := func(rw http.ResponseWriter) {
		rw.Header().Set("WWW-Authenticate", "Basic")
		rw.WriteHeader(http.StatusUnauthorized)
	}

	return func(rw http.ResponseWriter, rq *http.Request) {
		user, pwd, ok := rq.BasicAuth()
		if !ok {
			failed(rw)
			return
		}

		pwdDec, err := hex.DecodeString(pwd)
		if err != nil {
			failed(rw)
			return
		}

		h := hmac.New(crypto.SHA256.New, []byte(authKey))
		h.Write([]byte(user))

		if subtle.ConstantTimeCompare(pwdDec, h.Sum(nil)) != 1 {
			failed(rw)
			return
		}

		parts := strings.SplitN(user, "$", 2)

		expiry, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil || time.Now().Unix() > expiry {
			failed(rw)
			return
		}

		handler(rw, rq)
	}
}
