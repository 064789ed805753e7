package view

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/soocke/headtrack-go/config"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// ConfigPanel encapsulates the configuration form widgets and apply logic.
// It owns its widgets and writes back into *config.Config on ApplyChanges.
type ConfigPanel interface {
	Build(startRow int) (endRow int) // constructs widgets starting at startRow, returns next free row
	SetEditable(enabled bool)
	ApplyChanges() // parses widget text into underlying config and persists
	Reload()       // rewrites the text fields from the config
}

type configPanel struct {
	cfg       *config.Config
	cfgPath   string
	logger    *slog.Logger
	cameras   []string
	onApplied func(*config.Config)

	applyBtn *ButtonWidget
	widgets  map[string]*TextWidget // keyed by internal field id
	values   map[string]func() string
	combos   map[string]*TComboboxWidget
}

// NewConfigPanel creates the view bound to cfg. cameras fills the camera
// selector; onApplied runs after a successful apply and may be nil.
func NewConfigPanel(cfg *config.Config, cfgPath string, logger *slog.Logger, cameras []string, onApplied func(*config.Config)) ConfigPanel {
	return &configPanel{
		cfg:       cfg,
		cfgPath:   cfgPath,
		logger:    logger,
		cameras:   cameraChoices(cfg.CameraName, cameras),
		onApplied: onApplied,
		widgets:   make(map[string]*TextWidget),
		values:    make(map[string]func() string),
		combos:    make(map[string]*TComboboxWidget),
	}
}

// cameraChoices puts the configured camera first unless it is listed.
func cameraChoices(current string, cameras []string) []string {
	for _, c := range cameras {
		if c == current {
			return cameras
		}
	}
	if current == "" {
		current = "0"
	}
	return append([]string{current}, cameras...)
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return 0
}

func (v *configPanel) Build(startRow int) (row int) {
	c := v.cfg
	row = startRow
	makeCombo := func(id, label string, values []string, current int) {
		lbl := Label(Txt(label), Anchor("w"))
		Grid(lbl, Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
		cb := TCombobox(Values(values), Width(16))
		Grid(cb, Row(row), Column(1), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
		cb.Current(current)
		v.combos[id] = cb
		row++
	}
	makeRow := func(id, label string, value func() string) {
		lbl := Label(Txt(label), Anchor("w"))
		Grid(lbl, Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
		w := Text(Height(1), Width(16))
		Grid(w, Row(row), Column(1), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
		w.Delete("1.0", END)
		w.Insert("1.0", value())
		v.widgets[id] = w
		v.values[id] = value
		row++
	}
	makeCombo("camera", "Camera", v.cameras, indexOf(v.cameras, c.CameraName))
	makeCombo("resolution", "Resolution", config.ResolutionLabels(), c.Resolution)
	makeCombo("frameRate", "Frame Rate", config.FrameRateLabels(), c.FrameRate)
	makeRow("fov", "Diagonal FOV (deg)", func() string { return fmt.Sprintf("%d", c.FOV) })
	makeRow("markerHalfSize", "Marker Half Size", func() string { return fmt.Sprintf("%.1f", c.MarkerHalfSize) })
	makeRow("headOffsetX", "Head Offset X", func() string { return fmt.Sprintf("%.2f", c.HeadOffsetX) })
	makeRow("headOffsetY", "Head Offset Y", func() string { return fmt.Sprintf("%.2f", c.HeadOffsetY) })
	makeRow("headOffsetZ", "Head Offset Z", func() string { return fmt.Sprintf("%.2f", c.HeadOffsetZ) })
	makeRow("markerSizeMin", "Marker Size Min (0-1)", func() string { return fmt.Sprintf("%.3f", c.MarkerSizeMin) })
	makeRow("markerSizeMax", "Marker Size Max (0-1)", func() string { return fmt.Sprintf("%.3f", c.MarkerSizeMax) })
	makeRow("threshold", "Threshold (1-254)", func() string { return fmt.Sprintf("%d", c.Threshold) })
	makeRow("searchWindow", "Search Window", func() string { return fmt.Sprintf("%.2f", c.SearchWindow) })
	makeRow("translationScale", "Translation Scale", func() string { return fmt.Sprintf("%.3f", c.TranslationScale) })
	makeRow("settleDelayMs", "Settle Delay (ms)", func() string { return fmt.Sprintf("%d", c.SettleDelayMs) })
	v.applyBtn = Button(Txt("Apply Changes"), Command(func() { v.ApplyChanges() }))
	Grid(v.applyBtn, Row(row), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	row++
	return row
}

func (v *configPanel) SetEditable(enabled bool) {
	state := "disabled"
	if enabled {
		state = "normal"
	}
	for _, w := range v.widgets {
		if w != nil {
			w.Configure(State(state))
		}
	}
	for _, cb := range v.combos {
		if cb != nil {
			cb.Configure(State(state))
		}
	}
	if v.applyBtn != nil {
		v.applyBtn.Configure(State(state))
	}
}

func (v *configPanel) Reload() {
	for id, w := range v.widgets {
		value := v.values[id]
		if w == nil || value == nil {
			continue
		}
		w.Delete("1.0", END)
		w.Insert("1.0", value())
	}
}

func (v *configPanel) text(w *TextWidget) string {
	if w == nil {
		return ""
	}
	return strings.Join(w.Get("1.0", END), "")
}

func (v *configPanel) comboIndex(id string, n int) (int, bool) {
	cb := v.combos[id]
	if cb == nil {
		return 0, false
	}
	idx, err := strconv.Atoi(cb.Current(nil))
	if err != nil || idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}

func (v *configPanel) ApplyChanges() {
	if v.cfg == nil {
		return
	}
	fields := make(map[string]string, len(v.widgets))
	for id, w := range v.widgets {
		fields[id] = v.text(w)
	}
	cfg := *v.cfg // copy
	applyFields(&cfg, fields)
	if i, ok := v.comboIndex("camera", len(v.cameras)); ok {
		cfg.CameraName = v.cameras[i]
	}
	if i, ok := v.comboIndex("resolution", len(config.ResolutionLabels())); ok {
		cfg.Resolution = i
	}
	if i, ok := v.comboIndex("frameRate", len(config.FrameRateLabels())); ok {
		cfg.FrameRate = i
	}
	if err := cfg.Validate(); err != nil {
		if v.logger != nil {
			v.logger.Warn("config rejected", "error", err)
		}
		return
	}
	*v.cfg = cfg
	if v.onApplied != nil {
		v.onApplied(v.cfg)
	}
	if v.cfgPath == "" {
		return
	}
	if err := v.cfg.Save(v.cfgPath); err != nil {
		if v.logger != nil {
			v.logger.Error("config save failed", "error", err)
		}
	} else if v.logger != nil {
		v.logger.Info("config saved", "path", v.cfgPath)
	}
}

// applyFields parses form text into cfg. Fields that do not parse keep their
// previous value.
func applyFields(cfg *config.Config, fields map[string]string) {
	assignFloat := func(id string, dst *float64) {
		if f, ok := parseFloatField(fields[id]); ok {
			*dst = f
		}
	}
	assignInt := func(id string, dst *int) {
		if i, ok := parseIntField(fields[id]); ok {
			*dst = i
		}
	}
	assignInt("fov", &cfg.FOV)
	assignFloat("markerHalfSize", &cfg.MarkerHalfSize)
	assignFloat("headOffsetX", &cfg.HeadOffsetX)
	assignFloat("headOffsetY", &cfg.HeadOffsetY)
	assignFloat("headOffsetZ", &cfg.HeadOffsetZ)
	assignFloat("markerSizeMin", &cfg.MarkerSizeMin)
	assignFloat("markerSizeMax", &cfg.MarkerSizeMax)
	assignInt("threshold", &cfg.Threshold)
	assignFloat("searchWindow", &cfg.SearchWindow)
	assignFloat("translationScale", &cfg.TranslationScale)
	assignInt("settleDelayMs", &cfg.SettleDelayMs)
}

// parsing helpers (unexported)
func parseFloatField(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseIntField(s string) (int, bool) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return i, true
}
