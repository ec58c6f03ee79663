package metrics

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHWMonitor_ConsumeLine_SkipsHeaderAndMalformed(t *testing.T) {
	m := NewHWMonitor(zerolog.Nop())
	m.ConsumeLine("TS,SKT,CPU,CID,freq,cpi,fe,bad,be,ret")
	m.ConsumeLine("")
	m.ConsumeLine("1,2,3,4,notanumber,1,1,1,1,1")
	m.ConsumeLine("1,2,3,4,too,few,fields")

	assert.Nil(t, m.Average())
}

func TestHWMonitor_ConsumeLine_AveragesAcrossSamples(t *testing.T) {
	m := NewHWMonitor(zerolog.Nop())
	m.ConsumeLine("1,2,3,4,2.0,1.0,10,5,20,65")
	m.ConsumeLine("1,2,3,4,4.0,3.0,10,5,20,65")

	avg := m.Average()
	require.NotNil(t, avg)
	assert.InDelta(t, 3.0, *avg.CPUFreq, 0.0001)
	assert.InDelta(t, 2.0, *avg.CPI, 0.0001)
	assert.InDelta(t, 10, *avg.TMAFrontend, 0.0001)
	assert.InDelta(t, 65, *avg.TMARetiring, 0.0001)
}

func TestHWMonitor_Average_DrainsAfterRead(t *testing.T) {
	m := NewHWMonitor(zerolog.Nop())
	m.ConsumeLine("1,2,3,4,1,1,1,1,1,1")
	require.NotNil(t, m.Average())
	assert.Nil(t, m.Average())
}

func TestSystemMonitor_AverageMemory_NilWhenEmpty(t *testing.T) {
	m := NewSystemMonitor(0, zerolog.Nop())
	assert.Nil(t, m.AverageMemory())
}

func TestSystemMonitor_AverageMemory_DrainsAndResets(t *testing.T) {
	m := NewSystemMonitor(0, zerolog.Nop())
	m.memPercentages = []float64{10, 20, 30}
	avg := m.AverageMemory()
	require.NotNil(t, avg)
	assert.InDelta(t, 20, *avg, 0.0001)
	assert.Nil(t, m.AverageMemory())
}
