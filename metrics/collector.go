/*
 * Copyright 2025 The shmcore Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nexlog/shmcore/counters"
)

// Collector implements prometheus.Collector over a counters.Reader. One gauge
// sample is emitted per allocated counter, labelled with the counter id, type
// id and label. Values are read with acquire semantics at scrape time.
type Collector struct {
	reader *counters.Reader
	desc   *prometheus.Desc
}

// NewCollector returns a Collector publishing under
// <namespace>_shm_counter_value.
func NewCollector(reader *counters.Reader, namespace string) *Collector {
	return &Collector{
		reader: reader,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "shm", "counter_value"),
			"Current value of a shared-memory counter.",
			[]string{"counter_id", "type_id", "label"},
			nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.reader.ForEach(func(id, typeID int32, label string) {
		ch <- prometheus.MustNewConstMetric(
			c.desc,
			prometheus.GaugeValue,
			float64(c.reader.CounterValue(id)),
			strconv.Itoa(int(id)),
			strconv.Itoa(int(typeID)),
			label,
		)
	})
}
