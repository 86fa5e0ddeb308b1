package dashboard

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mum4k/termdash"
	"github.com/mum4k/termdash/cell"
	"github.com/mum4k/termdash/container"
	"github.com/mum4k/termdash/container/grid"
	"github.com/mum4k/termdash/keyboard"
	"github.com/mum4k/termdash/linestyle"
	"github.com/mum4k/termdash/terminal/tcell"
	"github.com/mum4k/termdash/terminal/terminalapi"
	"github.com/mum4k/termdash/widgets/barchart"
	"github.com/mum4k/termdash/widgets/button"
	"github.com/mum4k/termdash/widgets/linechart"
	"github.com/mum4k/termdash/widgets/text"

	"binanceTracker/internal/domain"
	"binanceTracker/internal/ports"
	"binanceTracker/internal/series"
)

const (
	redrawInterval = 250 * time.Millisecond
	updateBuffer   = 16
	refreshLabel   = "Refresh now"
)

// Config holds the dashboard settings.
type Config struct {
	Symbol    string
	Buckets   []domain.Bucket
	Colors    []string // "#rrggbb", one per bucket
	MAPeriod  int      // 0 disables the moving average overlay
	MAType    series.MovingAverageType
	Refresher ports.Refresher
	Logger    ports.Logger
}

type update struct {
	snapshot *domain.MarketSnapshot
	err      error
}

// Dashboard is a terminal UI presenting market snapshots. It implements
// ports.SnapshotPresenter; updates are queued and applied by the listener
// started with StartUpdateListener.
type Dashboard struct {
	cfg        Config
	header     *text.Text
	priceChart *linechart.LineChart
	volChart   *linechart.LineChart
	bidChart   *barchart.BarChart
	askChart   *barchart.BarChart
	refreshBtn *button.Button
	colors     []cell.Color
	labels     []string
	updateChan chan update
}

// New creates a dashboard and its widgets.
func New(cfg Config) (*Dashboard, error) {
	if len(cfg.Colors) < len(cfg.Buckets) {
		return nil, fmt.Errorf("need one colour per bucket, got %d for %d buckets", len(cfg.Colors), len(cfg.Buckets))
	}
	d := &Dashboard{
		cfg:        cfg,
		updateChan: make(chan update, updateBuffer),
	}
	for i, b := range cfg.Buckets {
		c, err := ParseHexColor(cfg.Colors[i])
		if err != nil {
			return nil, err
		}
		d.colors = append(d.colors, c)
		d.labels = append(d.labels, b.Label)
	}
	if err := d.initWidgets(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dashboard) initWidgets() error {
	var err error
	d.header, err = text.New(text.WrapAtWords())
	if err != nil {
		return fmt.Errorf("failed to create header widget: %v", err)
	}
	if err := d.header.Write("Waiting for first snapshot..."); err != nil {
		return err
	}

	d.priceChart, err = linechart.New(
		linechart.AxesCellOpts(cell.FgColor(cell.ColorNumber(244))),
		linechart.YLabelCellOpts(cell.FgColor(cell.ColorGreen)),
		linechart.XLabelCellOpts(cell.FgColor(cell.ColorGreen)),
	)
	if err != nil {
		return fmt.Errorf("failed to create price chart: %v", err)
	}

	d.volChart, err = linechart.New(
		linechart.AxesCellOpts(cell.FgColor(cell.ColorNumber(244))),
		linechart.YLabelCellOpts(cell.FgColor(cell.ColorCyan)),
		linechart.XLabelCellOpts(cell.FgColor(cell.ColorCyan)),
	)
	if err != nil {
		return fmt.Errorf("failed to create volume chart: %v", err)
	}

	d.bidChart, err = barchart.New(
		barchart.BarColors(d.colors),
		barchart.ShowValues(),
		barchart.Labels(d.labels),
	)
	if err != nil {
		return fmt.Errorf("failed to create bid depth chart: %v", err)
	}
	d.askChart, err = barchart.New(
		barchart.BarColors(d.colors),
		barchart.ShowValues(),
		barchart.Labels(d.labels),
	)
	if err != nil {
		return fmt.Errorf("failed to create ask depth chart: %v", err)
	}

	d.refreshBtn, err = button.New(refreshLabel, func() error {
		d.requestRefresh()
		return nil
	},
		button.WidthFor(refreshLabel),
		button.Height(1),
		button.FillColor(cell.ColorNumber(220)),
	)
	if err != nil {
		return fmt.Errorf("failed to create refresh button: %v", err)
	}
	return nil
}

// Present queues a snapshot for display.
func (d *Dashboard) Present(ctx context.Context, snapshot *domain.MarketSnapshot) {
	d.enqueue(ctx, update{snapshot: snapshot})
}

// PresentFailure queues a failure notice. Charts keep the last good data.
func (d *Dashboard) PresentFailure(ctx context.Context, err error) {
	d.enqueue(ctx, update{err: err})
}

func (d *Dashboard) enqueue(ctx context.Context, u update) {
	select {
	case d.updateChan <- u:
	default:
		if d.cfg.Logger != nil {
			d.cfg.Logger.Warn(ctx, "Dashboard update queue full, dropping update")
		}
	}
}

// SetRefresher wires the refresh button and key. Call it before Run.
func (d *Dashboard) SetRefresher(r ports.Refresher) {
	d.cfg.Refresher = r
}

func (d *Dashboard) requestRefresh() {
	if d.cfg.Refresher != nil {
		d.cfg.Refresher.RequestRefresh()
	}
}

// StartUpdateListener applies queued updates until ctx is canceled.
func (d *Dashboard) StartUpdateListener(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case u := <-d.updateChan:
				if err := d.apply(u); err != nil && d.cfg.Logger != nil {
					d.cfg.Logger.Error(ctx, err, "Failed to update dashboard")
				}
			}
		}
	}()
}

func (d *Dashboard) apply(u update) error {
	d.header.Reset()
	if u.err != nil {
		return d.header.Write(FailureText(d.cfg.Symbol, u.err), text.WriteCellOpts(cell.FgColor(cell.ColorRed)))
	}
	s := u.snapshot
	if err := d.header.Write(HeaderText(s)); err != nil {
		return err
	}

	if err := d.updateHistory(s); err != nil {
		return err
	}

	bids, bidMax := BarValues(s.Depth.Ordered(domain.SideBid))
	if err := d.bidChart.Values(bids, bidMax); err != nil {
		return fmt.Errorf("bid depth chart: %w", err)
	}
	asks, askMax := BarValues(s.Depth.Ordered(domain.SideAsk))
	if err := d.askChart.Values(asks, askMax); err != nil {
		return fmt.Errorf("ask depth chart: %w", err)
	}
	return nil
}

func (d *Dashboard) updateHistory(s *domain.MarketSnapshot) error {
	labels := XLabels(s.Candles)
	closes := series.Closes(s.Candles)

	volumes := series.QuoteVolumes(s.Candles)
	for i := range volumes {
		volumes[i] /= 1e9
	}

	if err := d.priceChart.Series("close", closes,
		linechart.SeriesCellOpts(cell.FgColor(cell.ColorGreen)),
		linechart.SeriesXLabels(labels),
	); err != nil {
		return fmt.Errorf("price chart: %w", err)
	}

	if d.cfg.MAPeriod > 0 {
		ma, err := series.MovingAverage(s.Candles, d.cfg.MAPeriod, d.cfg.MAType)
		if err != nil {
			return fmt.Errorf("moving average: %w", err)
		}
		if !hasValue(ma) {
			ma = []float64{}
		}
		if err := d.priceChart.Series("ma", ma,
			linechart.SeriesCellOpts(cell.FgColor(cell.ColorYellow)),
		); err != nil {
			return fmt.Errorf("price chart overlay: %w", err)
		}
	}

	if err := d.volChart.Series("quote volume", volumes,
		linechart.SeriesCellOpts(cell.FgColor(cell.ColorCyan)),
		linechart.SeriesXLabels(labels),
	); err != nil {
		return fmt.Errorf("volume chart: %w", err)
	}
	return nil
}

func hasValue(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) {
			return true
		}
	}
	return false
}

// CreateGridLayout arranges the widgets.
func CreateGridLayout(d *Dashboard) ([]container.Option, error) {
	builder := grid.New()

	priceTitle := " Price "
	if d.cfg.MAPeriod > 0 {
		priceTitle = fmt.Sprintf(" Price (%s%d overlay) ", d.cfg.MAType, d.cfg.MAPeriod)
	}

	builder.Add(
		grid.RowHeightPerc(15,
			grid.ColWidthPerc(80,
				grid.Widget(d.header,
					container.Border(linestyle.Light),
					container.BorderTitle(fmt.Sprintf(" %s ", d.cfg.Symbol)),
				),
			),
			grid.ColWidthPerc(20,
				grid.Widget(d.refreshBtn,
					container.Border(linestyle.Light),
				),
			),
		),
		grid.RowHeightPerc(45,
			grid.ColWidthPerc(50,
				grid.Widget(d.priceChart,
					container.Border(linestyle.Light),
					container.BorderTitle(priceTitle),
				),
			),
			grid.ColWidthPerc(50,
				grid.Widget(d.volChart,
					container.Border(linestyle.Light),
					container.BorderTitle(" Quote Volume ($B) "),
				),
			),
		),
		grid.RowHeightPerc(40,
			grid.ColWidthPerc(50,
				grid.Widget(d.bidChart,
					container.Border(linestyle.Light),
					container.BorderTitle(" Bid Depth ($K) "),
				),
			),
			grid.ColWidthPerc(50,
				grid.Widget(d.askChart,
					container.Border(linestyle.Light),
					container.BorderTitle(" Ask Depth ($K) "),
				),
			),
		),
	)

	return builder.Build()
}

// Run draws the dashboard until ctx is canceled. Pressing q or Esc calls
// quit; r requests a refresh.
func Run(ctx context.Context, d *Dashboard, quit context.CancelFunc) error {
	t, err := tcell.New(tcell.ColorMode(terminalapi.ColorMode256))
	if err != nil {
		return fmt.Errorf("failed to initialize terminal: %v", err)
	}
	defer t.Close()

	gridOpts, err := CreateGridLayout(d)
	if err != nil {
		return fmt.Errorf("failed to build grid layout: %v", err)
	}

	c, err := container.New(t, gridOpts...)
	if err != nil {
		return fmt.Errorf("failed to create root container: %v", err)
	}

	d.StartUpdateListener(ctx)

	keys := func(k *terminalapi.Keyboard) {
		switch k.Key {
		case keyboard.KeyEsc, 'q', 'Q':
			quit()
		case 'r', 'R':
			d.requestRefresh()
		}
	}

	return termdash.Run(ctx, t, c,
		termdash.RedrawInterval(redrawInterval),
		termdash.KeyboardSubscriber(keys),
	)
}

// ParseHexColor converts "#rrggbb" into a terminal colour.
func ParseHexColor(s string) (cell.Color, error) {
	if len(s) != 7 || s[0] != '#' {
		return cell.ColorDefault, fmt.Errorf("invalid colour %q, expected #rrggbb", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return cell.ColorDefault, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return cell.ColorRGB24(int(v>>16&0xff), int(v>>8&0xff), int(v&0xff)), nil
}

// BarValues converts notional totals to whole thousands of USD for the bar
// charts, along with a positive maximum.
func BarValues(totals []float64) ([]int, int) {
	values := make([]int, len(totals))
	maxValue := 1
	for i, v := range totals {
		k := int(v/1e3 + 0.5)
		if k < 0 {
			k = 0
		}
		values[i] = k
		if k > maxValue {
			maxValue = k
		}
	}
	return values, maxValue
}

// XLabels labels chart positions with the candle dates.
func XLabels(samples []domain.CandleSample) map[int]string {
	labels := make(map[int]string, len(samples))
	for i, s := range samples {
		labels[i] = s.Time.Format("2006-01-02")
	}
	return labels
}

// HeaderText renders the summary line block for a snapshot.
func HeaderText(s *domain.MarketSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Price: $%.2f    24h Volume: $%.2fB    Updated: %s (%s)\n",
		s.Ticker.LastPrice, s.Ticker.QuoteVolume24h/1e9, s.FetchedAt.Format("15:04:05"), s.Provider)
	if !s.HasDepth {
		b.WriteString("No order book data. ")
	}
	if !s.HasHistory {
		b.WriteString("No price history available. ")
	}
	if s.Complete() {
		b.WriteString("Press r to refresh, q to quit.")
	}
	return b.String()
}

// FailureText renders the header shown after a failed cycle.
func FailureText(symbol string, err error) string {
	return fmt.Sprintf("%s: refresh failed (%s). Showing last data; press r to retry.", symbol, ports.Describe(err))
}
