// Package commands implements bharatctl, a device client for the BharatConnect
// key directory. Each invocation acts as one device whose private keys live in
// a local bbolt file.
package commands
