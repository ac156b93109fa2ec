package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
	"github.com/xpanvictor/chemtalk/pkg/io/audio"
	"github.com/xpanvictor/chemtalk/pkg/io/device"
	wsdevice "github.com/xpanvictor/chemtalk/pkg/io/device/websocket"
	"github.com/xpanvictor/chemtalk/pkg/io/registry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type DeviceHandler struct {
	registry registry.Registry
	logger   *Logger.Logger
}

func NewDeviceHandler(reg registry.Registry, logger *Logger.Logger) *DeviceHandler {
	return &DeviceHandler{registry: reg, logger: Logger.OrNop(logger).Named("http.device")}
}

type deviceReady struct {
	EndpointID   string              `json:"endpoint_id"`
	Capabilities device.Capabilities `json:"capabilities"`
	Format       device.AudioFormat  `json:"format"`
}

// Connect upgrades to a websocket and attaches it as one of the caller's
// devices until the connection drops. Capabilities come from the sink, source
// and text query flags; with none given the device is assumed to do all three.
// @Summary Attach a device
// @Tags Devices
// @Security BearerAuth
// @Param sink query bool false "Plays audio"
// @Param source query bool false "Streams microphone frames"
// @Param text query bool false "Shows notifications"
// @Router /v1/devices/ws [get]
func (h *DeviceHandler) Connect(c *gin.Context) {
	info, ok := ExtractUserInfo(c)
	if !ok {
		return
	}
	caps := capsFromQuery(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("websocket upgrade: %v", err)
		return
	}

	ep := wsdevice.New(conn, caps)
	h.registry.AttachEndpoint(info.UserID, ep)
	h.logger.Infof("device %s attached for %s (%+v)", ep.ID(), info.UserID, caps)

	_ = ep.SendEvent("device.ready", deviceReady{
		EndpointID:   ep.ID().String(),
		Capabilities: caps,
		Format: device.AudioFormat{
			SampleRate: audio.DefaultSpeechFormat.SampleRate,
			Channels:   audio.DefaultSpeechFormat.Channels,
			BitDepth:   16,
		},
	})

	ep.Serve()

	h.registry.DetachEndpoint(info.UserID, ep.ID())
	h.logger.Infof("device %s detached", ep.ID())
}

func capsFromQuery(c *gin.Context) device.Capabilities {
	flag := func(name string) (bool, bool) {
		raw, ok := c.GetQuery(name)
		if !ok {
			return false, false
		}
		if raw == "" {
			return true, true
		}
		v, err := strconv.ParseBool(raw)
		return err == nil && v, true
	}
	sink, sinkSet := flag("sink")
	source, sourceSet := flag("source")
	text, textSet := flag("text")
	if !sinkSet && !sourceSet && !textSet {
		return device.Capabilities{AudioSink: true, AudioSource: true, TextSink: true}
	}
	return device.Capabilities{AudioSink: sink, AudioSource: source, TextSink: text}
}
