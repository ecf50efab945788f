// Package device pulls rendered audio out of a Renderer in real time.
//
// Output plays through the default PortAudio device. Ticker drives a
// renderer from a software clock for hosts without a sound card, such as
// a headless server that only streams monitoring data.
package device
