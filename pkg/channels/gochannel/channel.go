// Package gochannel runs the formation event bus in memory, for single-process
// deployments and tests.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	outputBuffer     = 1000
	testOutputBuffer = 10
)

// CreateChannel returns one GoChannel serving as both ends of the bus. Step events
// published before the worker subscribes are dropped.
func CreateChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	return bothEnds(gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: outputBuffer}, logger))
}

// CreateTestChannel replays events to late subscribers and holds each publish until the
// handler acks it, so a test sees the worker's effect as soon as Publish returns.
func CreateTestChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	return bothEnds(gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            testOutputBuffer,
		Persistent:                     true,
		BlockPublishUntilSubscriberAck: true,
	}, logger))
}

func bothEnds(pubSub *gochannel.GoChannel) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	return pubSub, pubSub, nil
}
