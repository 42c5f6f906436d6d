// Package common holds the ambient pieces shared by the command line tools:
// the logger factory installed into the dragonboat logger facade and the typed
// configuration loaded with viper.
package common
