// Package command defines the aci-cli commands on urfave/cli/v2.
//
// Data commands open one websocket connection per invocation,
// authenticate with the resolved credentials, run a single request and
// close. Credentials and the server address come from flags, ACI_*
// environment variables or a saved profile, in that order.
package command
