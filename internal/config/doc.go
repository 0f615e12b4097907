// Package config provides configuration management for debugwand.
//
// Configuration is layered. Later sources override earlier ones:
//
//  1. Default Configuration (compiled in, see GetDefaultConfig)
//
//  2. User Configuration (~/.config/debugwand/config.yaml)
//     - Personal preferences such as a non-default port
//
//  3. Project Configuration (./.debugwand/config.yaml)
//     - Settings shared by a team through version control, typically
//     remoteRoot and the Python binary of the image
//
// Environment switches (see ReadEnvironment) and command line flags are
// applied on top by the cmd package.
//
// # Configuration Structure
//
//	debug:
//	  port: 5679
//	  remoteRoot: /app
//	  stagingDir: /tmp
//	  pythonBinary: python3
//	timeouts:
//	  exec: 10s
//	  forwardGrace: 2s
//	  pollInterval: 2s
//	  settle: 2s
//	reconnect:
//	  enabled: true
//	  interval: 5s
//	  timeout: 5m
//	kubernetes:
//	  context: kind-dev
//	  kubeconfig: ~/.kube/config
//
// Zero values in a layer leave the previous layer's value in place.
package config
