// Command spurrtc hosts the YP-Spur motion bridge component under a
// periodic execution context and talks to running instances.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/edwinhayes/spurgo/rtc"
	"github.com/edwinhayes/spurgo/spur"
	"github.com/edwinhayes/spurgo/xmlrpc"
	"github.com/edwinhayes/spurgo/ypspur"
)

var rootCmd = &cobra.Command{
	Use:           "spurrtc",
	Short:         "YP-Spur motion bridge component",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return rtc.ConfigureLogger(rtc.DefaultLogger(), logLevel, logFormat)
	},
}

var runCmd = &cobra.Command{
	Use:   "run [_name:=value ...]",
	Short: "Run the component until interrupted",
	Long: `Run initializes the component, serves its service port and data port
bridge over XML-RPC and drives it from a periodic execution context.

Configuration is read from the defaults, then --conf, then _name:=value
arguments, for example: spurrtc run _max_vel:=0.3 _debug:=1`,
	RunE: runComponent,
}

var callCmd = &cobra.Command{
	Use:   "call <method> [args ...]",
	Short: "Call a method on a running instance",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCall,
}

var (
	logLevel  string
	logFormat string

	confFile    string
	rate        float64
	driverName  string
	listenAddr  string
	retryPolicy string
	showProfile bool

	callURL     string
	callTimeout time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")

	runCmd.Flags().StringVar(&confFile, "conf", "", "JSON configuration file")
	runCmd.Flags().Float64Var(&rate, "rate", 100, "Execution rate in Hz")
	runCmd.Flags().StringVar(&driverName, "driver", "sim", "Motor driver (sim, ypspur)")
	runCmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:8765", "XML-RPC listen address")
	runCmd.Flags().StringVar(&retryPolicy, "retry", rtc.RetryNextTick.String(), "Cycle error policy (retry, stop)")
	runCmd.Flags().BoolVar(&showProfile, "profile", false, "Print the module profile and exit")

	callCmd.Flags().StringVar(&callURL, "url", "http://127.0.0.1:8765/", "XML-RPC URL of the instance")
	callCmd.Flags().DurationVar(&callTimeout, "timeout", 5*time.Second, "Call timeout")

	rootCmd.AddCommand(runCmd, callCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(-1)
	}
}

func printProfile(w io.Writer) {
	for _, kv := range spur.Profile.Spec() {
		fmt.Fprintf(w, "%s: %s\n", kv[0], kv[1])
	}
}

// loadProperties merges the configuration file and argument remappings.
// The special assignments (__name:=value) are returned separately.
func loadProperties(path string, args []string) (props, specials *rtc.Properties, err error) {
	props = rtc.NewProperties()
	if path != "" {
		file, err := rtc.LoadJSONFile(path)
		if err != nil {
			return nil, nil, err
		}
		props.Merge(file)
	}
	params, specials, rest := rtc.ProcessArguments(args)
	if len(rest) > 0 {
		return nil, nil, errors.Errorf("unexpected arguments %v", rest)
	}
	props.Merge(params)
	return props, specials, nil
}

func newDriver(name string) (ypspur.Driver, error) {
	switch name {
	case "sim":
		return ypspur.NewSimulator(), nil
	case "ypspur":
		return ypspur.NewLibDriver()
	default:
		return nil, errors.Errorf("unknown driver %q", name)
	}
}

const defaultName = "SpurRTC0"

// instance is an initialized component with its ports and the XML-RPC
// handler serving its service port and port bridge.
type instance struct {
	comp    *spur.Component
	admin   *rtc.PortAdmin
	handler *xmlrpc.Handler
}

func newInstance(driver ypspur.Driver, props *rtc.Properties, name string, opts ...spur.Option) (*instance, error) {
	opts = append([]spur.Option{spur.WithName(name)}, opts...)
	comp := spur.New(driver, opts...)
	admin := rtc.NewPortAdmin()
	if err := comp.Initialize(admin, props); err != nil {
		return nil, err
	}

	svc, _ := spur.ServiceOf(comp)
	handler := xmlrpc.NewHandler(svc.Methods())
	for method, m := range bridgeMethods(admin, comp, rtc.Now) {
		handler.Register(method, m)
	}
	return &instance{comp: comp, admin: admin, handler: handler}, nil
}

func runComponent(cmd *cobra.Command, args []string) error {
	if showProfile {
		printProfile(cmd.OutOrStdout())
		return nil
	}

	props, specials, err := loadProperties(confFile, args)
	if err != nil {
		return errors.Wrap(err, "configuration")
	}
	policy, err := rtc.ParseRetryPolicy(retryPolicy)
	if err != nil {
		return err
	}
	driver, err := newDriver(driverName)
	if err != nil {
		return err
	}

	inst, err := newInstance(driver, props, specials.GetOr("__name", defaultName))
	if err != nil {
		return err
	}
	comp, handler := inst.comp, inst.handler
	logger := rtc.NewLogger("spurrtc")

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	server := &http.Server{Handler: handler}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("XML-RPC server stopped")
		}
	}()
	logger.WithField("addr", listener.Addr().String()).Info("Serving XML-RPC")

	ec, err := rtc.NewExecutionContext(rate, rtc.WithRetryPolicy(policy))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runErr := ec.Run(ctx, comp)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("XML-RPC shutdown")
	}
	handler.WaitForShutdown()

	if err := comp.Finalize(); err != nil && runErr == nil {
		runErr = err
	}
	cycles, failures := ec.Stats()
	logger.WithField("cycles", cycles).WithField("failures", failures).Info("Finished")
	return runErr
}

// parseCallArg turns a command line word into an XML-RPC argument.
func parseCallArg(s string) interface{} {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func runCall(cmd *cobra.Command, args []string) error {
	params := make([]interface{}, 0, len(args)-1)
	for _, a := range args[1:] {
		params = append(params, parseCallArg(a))
	}
	client := &http.Client{Timeout: callTimeout}
	result, err := xmlrpc.CallWith(client, callURL, args[0], params...)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}
