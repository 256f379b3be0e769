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

// shmcore-tool exercises the counters registry and term appender over
// heap-backed regions, for layout debugging and quick sanity checks.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nexlog/shmcore/counters"
	"github.com/nexlog/shmcore/logbuffer"
	"github.com/nexlog/shmcore/membuf"
)

var (
	valuesSize   int
	metadataSize int
	termLength   int
)

func main() {
	root := &cobra.Command{
		Use:           "shmcore-tool",
		Short:         "Diagnostics for the shared-memory counters registry and term appender",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	layoutCmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the slot layout for the given region sizes",
		RunE:  runLayout,
	}
	layoutCmd.Flags().IntVar(&valuesSize, "values-size", 16*counters.CounterLength, "values region size in bytes")
	layoutCmd.Flags().IntVar(&metadataSize, "metadata-size", 16*counters.MetadataLength, "metadata region size in bytes")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Allocate counters and drive an appender through a term, then dump state",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().IntVar(&valuesSize, "values-size", 16*counters.CounterLength, "values region size in bytes")
	simulateCmd.Flags().IntVar(&metadataSize, "metadata-size", 16*counters.MetadataLength, "metadata region size in bytes")
	simulateCmd.Flags().IntVar(&termLength, "term-length", 4096, "term buffer length in bytes (power of two)")

	root.AddCommand(layoutCmd, simulateCmd)

	if err := root.Execute(); err != nil {
		slog.Error("shmcore-tool failed", "error", err)
		os.Exit(1)
	}
}

func runLayout(cmd *cobra.Command, _ []string) error {
	valueSlots := valuesSize / counters.CounterLength
	metadataSlots := metadataSize / counters.MetadataLength
	slots := valueSlots
	if metadataSlots < slots {
		slots = metadataSlots
	}

	fmt.Printf("values region:   %d bytes, %d slots of %d bytes\n", valuesSize, valueSlots, counters.CounterLength)
	fmt.Printf("metadata region: %d bytes, %d records of %d bytes\n", metadataSize, metadataSlots, counters.MetadataLength)
	fmt.Printf("usable counters: %d (ids 0..%d)\n", slots, slots-1)
	fmt.Printf("key bytes:       %d per record at offset %d\n", counters.MaxKeyLength, counters.KeyOffset)
	fmt.Printf("label bytes:     up to %d per record at offset %d\n", counters.MaxLabelLength, counters.LabelOffset)
	if metadataSize < 2*valuesSize {
		return fmt.Errorf("metadata region too small: %d < 2 * %d", metadataSize, valuesSize)
	}
	return nil
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	meta, err := membuf.NewAlignedBuffer(metadataSize, membuf.CacheLineLength)
	if err != nil {
		return err
	}
	values, err := membuf.NewAlignedBuffer(valuesSize, membuf.CacheLineLength)
	if err != nil {
		return err
	}
	manager, err := counters.NewManager(meta, values)
	if err != nil {
		return err
	}

	names := []string{"bytes-sent", "bytes-received", "errors", "publisher-limit"}
	for i, name := range names {
		counter, err := manager.AllocateCounter(name, int32(i))
		if err != nil {
			return err
		}
		for j := int64(0); j <= int64(i); j++ {
			counter.IncrementOrdered()
		}
	}

	fmt.Println("counters:")
	manager.ForEach(func(id, typeID int32, label string) {
		fmt.Printf("  %3d: type=%d value=%d label=%q\n", id, typeID, manager.CounterValue(id), label)
	})

	termBuffer, err := membuf.NewAlignedBuffer(termLength, membuf.CacheLineLength)
	if err != nil {
		return err
	}
	tailBuffer, err := membuf.NewAlignedBuffer(logbuffer.TailCounterLength, membuf.CacheLineLength)
	if err != nil {
		return err
	}
	appender, err := logbuffer.NewTermAppender(termBuffer, tailBuffer, 0)
	if err != nil {
		return err
	}

	header := logbuffer.NewHeaderWriter(1, 1001)
	src, err := membuf.NewAlignedBuffer(64, 8)
	if err != nil {
		return err
	}
	src.SetMemory(0, 64, 0xAA)

	appends := 0
	for {
		result := appender.AppendUnfragmented(header, src, 0, 64, nil)
		if logbuffer.IsEndOfTerm(result) {
			fmt.Printf("appender: %d frames of 64-byte payload, then end-of-term sentinel %d in term %d\n",
				appends, logbuffer.TermOffset(result), logbuffer.TermID(result))
			break
		}
		appends++
	}

	offset, frames := 0, 0
	for offset < termLength {
		length := int(logbuffer.FrameLengthVolatile(termBuffer, offset))
		if length <= 0 {
			break
		}
		if logbuffer.FrameIsPadding(termBuffer, offset) {
			fmt.Printf("appender: padding frame of %d bytes at offset %d\n", length, offset)
		} else {
			frames++
		}
		offset += logbuffer.AlignFrameLength(length)
	}
	fmt.Printf("appender: scanned %d data frames covering %d bytes\n", frames, offset)
	return nil
}
