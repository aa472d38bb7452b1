package cli_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/canirun/canirun/core/cli"
	cliContext "github.com/canirun/canirun/core/cli/context"
	"github.com/canirun/canirun/core/schema"
	"github.com/canirun/canirun/pkg/modelspec"
	"github.com/canirun/canirun/pkg/vram"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const llama8B = "meta-llama/Llama-3.1-8B-Instruct"

var _ = Describe("commands", func() {
	var (
		out     *bytes.Buffer
		ctx     *cliContext.Context
		offline AppFlags
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		ctx = &cliContext.Context{Stdout: out}
		offline = AppFlags{Offline: true}
	})

	Describe("check", func() {
		It("prints the verdict and breakdown", func() {
			cmd := &CheckCMD{
				Model:         llama8B,
				Context:       4096,
				HardwareFlags: HardwareFlags{GPU: "RTX 4090", RAM: 64},
				AppFlags:      offline,
			}
			Expect(cmd.Run(ctx)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Full GPU"))
			Expect(out.String()).To(ContainSubstring("NVIDIA GeForce RTX 4090"))
			Expect(out.String()).To(ContainSubstring("context 4096 tokens"))
			Expect(out.String()).To(ContainSubstring("5.9 GB"))
		})

		It("prints JSON", func() {
			cmd := &CheckCMD{
				Model:         llama8B,
				Quant:         "fp16",
				Context:       8192,
				JSON:          true,
				HardwareFlags: HardwareFlags{GPU: "NVIDIA GeForce RTX 4060", RAM: 32},
				AppFlags:      offline,
			}
			Expect(cmd.Run(ctx)).To(Succeed())
			var resp schema.CompatibilityResponse
			Expect(json.Unmarshal(out.Bytes(), &resp)).To(Succeed())
			Expect(resp.Result.Verdict).To(Equal(vram.VerdictPartialOffload))
			Expect(resp.Result.Quantization).To(Equal(vram.QuantFP16))
		})

		It("overrides the accelerator memory", func() {
			vramGB := 4.0
			cmd := &CheckCMD{
				Model:         llama8B,
				Context:       4096,
				JSON:          true,
				HardwareFlags: HardwareFlags{GPU: "RTX 4090", RAM: 64, VRAM: &vramGB},
				AppFlags:      offline,
			}
			Expect(cmd.Run(ctx)).To(Succeed())
			var resp schema.CompatibilityResponse
			Expect(json.Unmarshal(out.Bytes(), &resp)).To(Succeed())
			Expect(resp.Result.AvailableAcceleratorGB).To(Equal(4.0))
			Expect(resp.Result.Verdict).To(Equal(vram.VerdictPartialOffload))
		})

		It("uses the configured default quantization", func() {
			offline.DefaultQuantizationLevel = "q8_0"
			cmd := &CheckCMD{
				Model:         llama8B,
				Context:       4096,
				JSON:          true,
				HardwareFlags: HardwareFlags{GPU: "RTX 4090", RAM: 64},
				AppFlags:      offline,
			}
			Expect(cmd.Run(ctx)).To(Succeed())
			var resp schema.CompatibilityResponse
			Expect(json.Unmarshal(out.Bytes(), &resp)).To(Succeed())
			Expect(resp.Result.Quantization).To(Equal(vram.QuantQ8_0))
		})

		It("rejects an unknown default quantization", func() {
			offline.DefaultQuantizationLevel = "Q1"
			cmd := &CheckCMD{
				Model:         llama8B,
				HardwareFlags: HardwareFlags{GPU: "RTX 4090", RAM: 64},
				AppFlags:      offline,
			}
			Expect(cmd.Run(ctx)).To(MatchError(vram.ErrUnknownQuantization))
			Expect(out.String()).To(BeEmpty())

			serve := &ServeCMD{AppFlags: offline}
			Expect(serve.Run(ctx)).To(MatchError(ContainSubstring("--default-quant")))
		})

		It("fails on unknown models", func() {
			cmd := &CheckCMD{Model: "nobody/nothing", HardwareFlags: HardwareFlags{GPU: "RTX 4090", RAM: 64}, AppFlags: offline}
			Expect(cmd.Run(ctx)).To(MatchError(modelspec.ErrModelNotFound))
		})

		It("fails on unknown quantizations", func() {
			cmd := &CheckCMD{Model: llama8B, Quant: "Q1", HardwareFlags: HardwareFlags{GPU: "RTX 4090", RAM: 64}, AppFlags: offline}
			Expect(cmd.Run(ctx)).To(MatchError(vram.ErrUnknownQuantization))
		})
	})

	Describe("compare", func() {
		It("renders one row per model", func() {
			cmd := &CompareCMD{
				Models:        []string{llama8B, "meta-llama/Llama-3.1-70B-Instruct", "nobody/nothing"},
				HardwareFlags: HardwareFlags{GPU: "RTX 4090", RAM: 32},
				AppFlags:      offline,
			}
			Expect(cmd.Run(ctx)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("MODEL"))
			Expect(out.String()).To(ContainSubstring("Full GPU"))
			Expect(out.String()).To(ContainSubstring("Partial Offload"))
			Expect(out.String()).To(ContainSubstring("error: model not found"))
		})

		It("prints JSON", func() {
			cmd := &CompareCMD{
				Models:        []string{llama8B},
				Quant:         "q8_0",
				JSON:          true,
				HardwareFlags: HardwareFlags{GPU: "RTX 4090", RAM: 32},
				AppFlags:      offline,
			}
			Expect(cmd.Run(ctx)).To(Succeed())
			var resp schema.CompareResponse
			Expect(json.Unmarshal(out.Bytes(), &resp)).To(Succeed())
			Expect(resp.Quantization).To(Equal(vram.QuantQ8_0))
			Expect(resp.Rows).To(HaveLen(1))
		})
	})

	It("lists accelerators of one vendor", func() {
		cmd := &GPUsCMD{Vendor: "Apple", AppFlags: offline}
		Expect(cmd.Run(ctx)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("APPLE"))
		Expect(out.String()).ToNot(ContainSubstring("NVIDIA"))
		Expect(out.String()).To(ContainSubstring("unified"))
	})

	It("reports when no accelerator matches", func() {
		cmd := &GPUsCMD{Term: "zzzzzz", AppFlags: offline}
		Expect(cmd.Run(ctx)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("no accelerator matches"))
	})

	It("lists quantizations", func() {
		Expect((&QuantsCMD{}).Run(ctx)).To(Succeed())
		for _, q := range vram.Quantizations() {
			Expect(out.String()).To(ContainSubstring(string(q.Level)))
		}
	})

	Describe("models", func() {
		It("searches", func() {
			cmd := &ModelsSearch{Term: "qwen", Limit: 5, AppFlags: offline}
			Expect(cmd.Run(ctx)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Qwen/"))
			Expect(out.String()).To(ContainSubstring("seed"))
		})

		It("shows a model", func() {
			cmd := &ModelsShow{ID: llama8B, AppFlags: offline}
			Expect(cmd.Run(ctx)).To(Succeed())
			var spec vram.ModelSpec
			Expect(json.Unmarshal(out.Bytes(), &spec)).To(Succeed())
			Expect(spec.ID).To(Equal(llama8B))
			Expect(spec.Source).To(Equal(vram.SourceSeed))
		})

		It("picks up custom models from the config dir", func() {
			dir := GinkgoT().TempDir()
			Expect(os.WriteFile(filepath.Join(dir, "custom_models.yaml"), []byte(`
- id: acme/tiny
  name: Tiny
  params: 0.5
  layers: 24
  num_attention_heads: 14
  num_kv_heads: 2
  hidden_size: 896
  max_context_length: 32768
`), 0600)).To(Succeed())

			flags := offline
			flags.ConfigDir = dir
			cmd := &ModelsShow{ID: "acme/tiny", AppFlags: flags}
			Expect(cmd.Run(ctx)).To(Succeed())
			var spec vram.ModelSpec
			Expect(json.Unmarshal(out.Bytes(), &spec)).To(Succeed())
			Expect(spec.Source).To(Equal(vram.SourceCustom))
			Expect(spec.Layers).To(Equal(24))
		})
	})

	Describe("serve", func() {
		It("prints the version", func() {
			Expect((&ServeCMD{Version: true}).Run(ctx)).To(Succeed())
			Expect(out.String()).ToNot(BeEmpty())
		})
	})

	Describe("util gguf-info", func() {
		It("needs a file", func() {
			Expect((&GGUFInfoCMD{}).Run(ctx)).ToNot(Succeed())
		})

		It("rejects files that are not GGUF", func() {
			path := filepath.Join(GinkgoT().TempDir(), "model.gguf")
			Expect(os.WriteFile(path, []byte("not a gguf file"), 0600)).To(Succeed())
			Expect((&GGUFInfoCMD{Args: []string{path}}).Run(ctx)).ToNot(Succeed())
		})
	})
})
