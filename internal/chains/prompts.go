package chains

import (
	"fmt"
	"strings"

	"notedraft/internal/core"
)

const parseSystemPrompt = `あなたは入力素材を構造化するエキスパートです。

## タスク
ユーザーから提供された記事素材を分析し、構造化データに変換してください。

## 抽出項目
1. theme: 記事のテーマ・主旨（1文で要約）
2. audience: 想定読者（素材に明記されている場合のみ）
3. goal: 記事の目的（素材に明記されている場合のみ）
4. desired_length: 目標文字数（素材に明記されている場合のみ）
5. key_points: 記事に含めるべき重要ポイント（箇条書きから抽出）
6. interview_quotes: インタビュー内容（そのまま引用可能な発言）
7. data_facts: 具体的な数値やデータ
8. people: 登場人物（名前、役職）
9. keywords: 検索に使えるキーワード（5-10個）
10. missing_info: 記事作成に不足していそうな情報

## ルール
- 入力にない情報は推測しない
- 曖昧な表現はそのまま保持
- 数値や固有名詞は正確に抽出`

// BuildParsePrompt renders the user message for the input parser.
func BuildParsePrompt(material string) string {
	var b strings.Builder
	b.WriteString("## 入力素材\n")
	b.WriteString(material)
	b.WriteString("\n\n上記の素材を構造化してください。")
	return b.String()
}

const classifySystemPrompt = `あなたは記事タイプを分類する専門家です。

## タスク
構造化された素材から、作成すべき記事のタイプを判定してください。

## 記事タイプ（4種類）

1. ANNOUNCEMENT（アナウンスメント）
   - 新サービス、新機能のリリース告知
   - 会社からの重要なお知らせ
   - プレスリリース的な内容
   - キーワード: リリース、お知らせ、開始、発表、ローンチ

2. EVENT_REPORT（イベントレポート）
   - 社内勉強会の報告
   - 外部イベント参加レポート
   - ワークショップ、セミナーの振り返り
   - キーワード: 勉強会、イベント、セミナー、参加、開催、LT

3. INTERVIEW（インタビュー）
   - 社員インタビュー
   - 入社エントリ、退職エントリ
   - 特定の人物にフォーカスした記事
   - キーワード: インタビュー、入社、〇〇さん、働き方、キャリア

4. CULTURE（カルチャー）
   - 企業文化、価値観の紹介
   - 制度紹介（リモートワーク、福利厚生など）
   - チーム・組織の紹介
   - キーワード: 制度、文化、働き方、チーム、環境、福利厚生

## 判定ルール
- 迷った場合は素材の主目的で判定
- 複合的な場合は最も強い要素で判定`

// BuildClassifyPrompt renders the brief summary the classifier judges.
func BuildClassifyPrompt(in *core.ArticleInput) string {
	var b strings.Builder
	b.WriteString("## 素材情報\n")
	b.WriteString(fmt.Sprintf("テーマ: %s\n", in.Theme))
	b.WriteString(fmt.Sprintf("キーポイント: %s\n", strings.Join(in.KeyPoints, ", ")))
	b.WriteString(fmt.Sprintf("登場人物: %s\n", formatPeople(in.People)))
	b.WriteString(fmt.Sprintf("キーワード: %s\n", strings.Join(in.Keywords, ", ")))
	b.WriteString(fmt.Sprintf("インタビュー引用: %s\n", formatQuotes(in.Quotes)))
	b.WriteString("\n上記の素材から記事タイプを判定してください。")
	return b.String()
}

const queryGenUserPrompt = "検索クエリを生成してください。"

// BuildQueryGenSystem renders the query generator's system instruction
// with the category-specific optimization hints.
func BuildQueryGenSystem(in *core.ArticleInput, category core.Category) string {
	var b strings.Builder
	b.WriteString("あなたは検索クエリを最適化する専門家です。\n\n")
	b.WriteString("## タスク\n")
	b.WriteString(fmt.Sprintf("以下の情報から、%s記事の内容検索に最適な検索クエリを生成してください。\n\n", category))
	b.WriteString("## 入力情報\n")
	b.WriteString(fmt.Sprintf("- テーマ: %s\n", in.Theme))
	b.WriteString(fmt.Sprintf("- 読者: %s\n", audienceOrDefault(in)))
	b.WriteString(fmt.Sprintf("- 目的: %s\n", goalOrDefault(in)))
	b.WriteString(fmt.Sprintf("- キーワード: %s\n\n", joinOrNone(in.Keywords)))
	b.WriteString("## クエリ生成ルール\n")
	b.WriteString("- キーワード列挙形式で出力（スペース区切り）\n")
	b.WriteString("- 各クエリは簡潔に（1-6単語）\n")
	b.WriteString("- テーマに関連するクエリ（2-3個）\n")
	b.WriteString(fmt.Sprintf("- %s記事の構成参考用クエリ（1-2個）\n\n", category))
	b.WriteString("## カテゴリ別最適化\n")
	b.WriteString("- INTERVIEW: 人物名、役職、キャリア、働き方\n")
	b.WriteString("- EVENT_REPORT: イベント名、勉強会、学び、参加\n")
	b.WriteString("- ANNOUNCEMENT: サービス名、リリース、新機能、お知らせ\n")
	b.WriteString("- CULTURE: 制度名、文化、働き方、チーム\n\n")
	b.WriteString("## 出力形式\n")
	b.WriteString("1行に1クエリ、キーワードのみをスペース区切りで出力してください。")
	return b.String()
}

// BuildStyleAnalysisSystem renders the style analyzer's system instruction.
func BuildStyleAnalysisSystem(category core.Category) string {
	var b strings.Builder
	b.WriteString("あなたは文章スタイルを分析する専門家です。\n\n")
	b.WriteString("## タスク\n")
	b.WriteString("以下の過去記事から、企業note記事の文体特徴を抽出してください。\n\n")
	b.WriteString("## 記事タイプ\n")
	b.WriteString(category.Label())
	b.WriteString("\n\n## 分析項目\n")
	b.WriteString("1. sentence_endings: よく使われる語尾パターン（例: 「〜ですね」「〜なんです」）\n")
	b.WriteString("2. tone: 全体的なトーン（カジュアル/フォーマル/その中間）\n")
	b.WriteString("3. first_person: 使われている一人称（私/僕/筆者など）\n")
	b.WriteString("4. notable_phrases: 特徴的なフレーズや言い回し（5-10個）\n\n")
	b.WriteString("## ルール\n")
	b.WriteString("- 具体例を挙げて説明\n")
	b.WriteString("- 記事タイプに特有のスタイルがあれば明記\n")
	b.WriteString("- 複数の記事に共通するパターンを優先")
	return b.String()
}

// BuildStyleAnalysisPrompt renders the reference articles for style analysis.
func BuildStyleAnalysisPrompt(references []string) string {
	var b strings.Builder
	b.WriteString("## 過去記事\n")
	b.WriteString(formatReferences(references))
	b.WriteString("\n\n上記の過去記事から文体特徴を抽出してください。")
	return b.String()
}

// BuildStructureAnalysisSystem renders the structure analyzer's system instruction.
func BuildStructureAnalysisSystem(category core.Category) string {
	var b strings.Builder
	b.WriteString("あなたは記事構成を分析する専門家です。\n\n")
	b.WriteString("## タスク\n")
	b.WriteString("以下の過去記事から、記事の構成パターンを分析してください。\n\n")
	b.WriteString("## 今回の記事タイプ\n")
	b.WriteString(category.Label())
	b.WriteString("\n\n## 分析項目\n")
	b.WriteString("1. heading_patterns: よく使われる見出しパターン\n")
	b.WriteString("2. lead_patterns: リード文の書き方パターン\n")
	b.WriteString("3. closing_patterns: 締めの文章パターン\n\n")
	b.WriteString("## 記事タイプ別の特徴\n")
	b.WriteString("- アナウンスメント: 結論先行、簡潔、リンク誘導\n")
	b.WriteString("- イベントレポート: 時系列、参加者の声、学び\n")
	b.WriteString("- インタビュー: Q&A形式、人物描写、ストーリー\n")
	b.WriteString("- カルチャー: 制度説明、具体例、メリット")
	return b.String()
}

// BuildStructureAnalysisPrompt renders the reference articles for structure analysis.
func BuildStructureAnalysisPrompt(references []string) string {
	var b strings.Builder
	b.WriteString("## 過去記事\n")
	b.WriteString(formatReferences(references))
	b.WriteString("\n\n上記から構成パターンを分析してください。")
	return b.String()
}

const outlineUserPrompt = "アウトラインを作成してください。"

// BuildOutlineSystem renders the outline chain's system instruction from
// the brief, the structure analysis and the retrieved style material.
func BuildOutlineSystem(in OutlineInput) string {
	var b strings.Builder
	b.WriteString("あなたは記事構成の専門家です。\n\n")
	b.WriteString("## タスク\n")
	b.WriteString("以下の情報をもとに、記事のアウトライン（骨子）を作成してください。\n\n")
	b.WriteString("## 記事情報\n")
	b.WriteString(fmt.Sprintf("テーマ: %s\n", in.Input.Theme))
	b.WriteString(fmt.Sprintf("記事タイプ: %s\n", in.Category.Label()))
	b.WriteString(fmt.Sprintf("キーポイント: %s\n", strings.Join(in.Input.KeyPoints, ", ")))
	b.WriteString(fmt.Sprintf("インタビュー引用: %s\n\n", formatQuotes(in.Input.Quotes)))
	b.WriteString("## 構成パターン（過去記事分析結果）\n")
	b.WriteString(fmt.Sprintf("典型的な見出し: %s\n", strings.Join(in.Structure.HeadingPatterns, ", ")))
	b.WriteString(fmt.Sprintf("リード文パターン: %s\n", strings.Join(in.Structure.LeadPatterns, ", ")))
	b.WriteString(fmt.Sprintf("締めパターン: %s\n", strings.Join(in.Structure.ClosingPatterns, ", ")))
	writeProfileBlock(&b, in.Profile)
	writeExcerptBlock(&b, in.Excerpts)
	writeReferenceBlock(&b, in.References)
	b.WriteString("\n## 記事タイプ別ガイドライン\n")
	b.WriteString("- アナウンスメント: 概要→詳細→今後の展開→CTA\n")
	b.WriteString("- イベントレポート: 導入→イベント概要→学び・気づき→まとめ\n")
	b.WriteString("- インタビュー: 人物紹介→きっかけ→現在の仕事→今後の展望\n")
	b.WriteString("- カルチャー: 制度紹介→具体的な運用→社員の声→まとめ\n\n")
	b.WriteString("## 制約\n")
	b.WriteString("- 見出しは2〜4個\n")
	b.WriteString(fmt.Sprintf("- 全体で%d字程度を想定\n", desiredLength(in.Input)))
	b.WriteString("- 各見出しに対して、その下に書く内容の概要を記載")
	return b.String()
}

const titleUserPrompt = "タイトル案を3つ作成してください。"

// BuildTitleSystem renders the title chain's system instruction.
func BuildTitleSystem(in TitleInput) string {
	var b strings.Builder
	b.WriteString("あなたはnote記事のタイトルを考える専門家です。\n\n")
	b.WriteString("## タスク\n")
	b.WriteString("以下の情報をもとに、魅力的なタイトル案を3つ作成してください。\n\n")
	b.WriteString("## 記事情報\n")
	b.WriteString(fmt.Sprintf("テーマ: %s\n", in.Input.Theme))
	b.WriteString(fmt.Sprintf("記事タイプ: %s\n", in.Category.Label()))
	b.WriteString(fmt.Sprintf("アウトライン: %s\n\n", outlineSummary(in.Outline)))
	b.WriteString("## 記事タイプ別タイトル傾向\n")
	b.WriteString("- アナウンスメント: 「〇〇をリリースしました」「〇〇のお知らせ」\n")
	b.WriteString("- イベントレポート: 「〇〇勉強会レポート」「〇〇に参加してきました」\n")
	b.WriteString("- インタビュー: 「〇〇さんに聞いてみた」「入社N年目の本音」\n")
	b.WriteString("- カルチャー: 「〇〇制度を紹介」「こんな働き方しています」\n\n")
	b.WriteString("## タイトル作成のポイント\n")
	b.WriteString(fmt.Sprintf("- ターゲット読者: %s\n", audienceOrDefault(in.Input)))
	b.WriteString(fmt.Sprintf("- 目的: %s\n", goalOrDefault(in.Input)))
	b.WriteString("- クリックしたくなる魅力的な表現\n")
	b.WriteString("- 30文字前後を目安")
	writeProfileBlock(&b, in.Profile)
	return b.String()
}

const leadUserPrompt = "リード文を作成してください。"

// BuildLeadSystem renders the lead chain's system instruction.
func BuildLeadSystem(in LeadInput) string {
	var b strings.Builder
	b.WriteString("あなたは企業のnote記事ライターです。\n\n")
	b.WriteString("## タスク\n")
	b.WriteString("記事の冒頭を飾るリード文を作成してください。\n\n")
	b.WriteString("## 記事情報\n")
	b.WriteString(fmt.Sprintf("テーマ: %s\n", in.Input.Theme))
	b.WriteString(fmt.Sprintf("記事タイプ: %s\n", in.Category.Label()))
	b.WriteString(fmt.Sprintf("アウトライン: %s\n\n", outlineSummary(in.Outline)))
	b.WriteString("## 文体ガイド\n")
	b.WriteString(fmt.Sprintf("トーン: %s\n", in.Style.Tone))
	b.WriteString(fmt.Sprintf("語尾パターン: %s\n", strings.Join(in.Style.SentenceEndings, ", ")))
	b.WriteString(fmt.Sprintf("特徴的フレーズ: %s\n\n", strings.Join(in.Style.NotablePhrases, ", ")))
	b.WriteString("## 過去記事のリード文パターン\n")
	b.WriteString(strings.Join(in.Structure.LeadPatterns, ", "))
	b.WriteString("\n")
	writeProfileBlock(&b, in.Profile)
	writeExcerptBlock(&b, in.Excerpts)
	b.WriteString("\n## 制約\n")
	b.WriteString("- 100〜150字\n")
	b.WriteString("- 記事を読みたくなる魅力的な書き出し\n")
	b.WriteString("- 文体ガイドに従う\n")
	b.WriteString(fmt.Sprintf("- ターゲット読者（%s）を意識", audienceOrDefault(in.Input)))
	return b.String()
}

const sectionUserPrompt = "この見出しの本文を執筆してください。"

// BuildSectionSystem renders the section chain's system instruction for
// one outline section.
func BuildSectionSystem(in SectionInput) string {
	target := in.Section.TargetLength
	if target <= 0 {
		target = DefaultSectionLength
	}

	var b strings.Builder
	b.WriteString("あなたは企業のnote記事ライターです。\n\n")
	b.WriteString("## タスク\n")
	b.WriteString("指定された見出しの本文を執筆してください。\n\n")
	b.WriteString("## 見出し情報\n")
	b.WriteString(fmt.Sprintf("見出し: %s\n", in.Section.Title))
	b.WriteString(fmt.Sprintf("概要: %s\n", in.Section.Summary))
	b.WriteString(fmt.Sprintf("含めるべき情報: %s\n", strings.Join(in.Section.KeySources, ", ")))
	b.WriteString(fmt.Sprintf("目標文字数: %d字\n\n", target))
	b.WriteString("## 記事タイプ\n")
	b.WriteString(in.Category.Label())
	b.WriteString("\n\n## 入力素材\n")
	b.WriteString(fmt.Sprintf("テーマ: %s\n", in.Input.Theme))
	b.WriteString(fmt.Sprintf("キーポイント: %s\n", strings.Join(in.Input.KeyPoints, ", ")))
	b.WriteString(fmt.Sprintf("インタビュー引用: %s\n", formatQuotesBracketed(in.Input.Quotes)))
	b.WriteString(fmt.Sprintf("データ・数値: %s\n", strings.Join(in.Input.DataFacts, ", ")))
	b.WriteString(fmt.Sprintf("登場人物: %s\n\n", formatPeople(in.Input.People)))
	b.WriteString("## 文体ガイド（必ず従うこと）\n")
	b.WriteString(fmt.Sprintf("トーン: %s\n", in.Style.Tone))
	b.WriteString(fmt.Sprintf("語尾パターン: %s\n", strings.Join(in.Style.SentenceEndings, ", ")))
	b.WriteString(fmt.Sprintf("一人称: %s\n", in.Style.FirstPerson))
	b.WriteString(fmt.Sprintf("特徴的フレーズ: %s\n", strings.Join(in.Style.NotablePhrases, ", ")))
	writeProfileBlock(&b, in.Profile)
	writeReferenceBlock(&b, in.References)
	b.WriteString("\n## 絶対ルール\n")
	b.WriteString("1. 入力素材に含まれない具体的な数値・固有名詞は補完しない\n")
	b.WriteString("2. 不明な情報は [要確認: 〇〇] と記載\n")
	b.WriteString("3. インタビュー引用は「」で括って使用\n")
	b.WriteString("4. 文体ガイドの語尾パターンを使用\n")
	b.WriteString("5. 事実と異なる情報を創作しない\n\n")
	b.WriteString("## 出力\n")
	b.WriteString("見出しの本文のみを出力（見出し自体は含めない）")
	return b.String()
}

const closingUserPrompt = "締めの文章を作成してください。"

// BuildClosingSystem renders the closing chain's system instruction.
func BuildClosingSystem(in ClosingInput) string {
	var b strings.Builder
	b.WriteString("あなたは企業のnote記事ライターです。\n\n")
	b.WriteString("## タスク\n")
	b.WriteString("記事の締めの文章を作成してください。\n\n")
	b.WriteString("## 記事情報\n")
	b.WriteString(fmt.Sprintf("テーマ: %s\n", in.Input.Theme))
	b.WriteString(fmt.Sprintf("記事タイプ: %s\n\n", in.Category.Label()))
	b.WriteString("## 文体ガイド\n")
	b.WriteString(fmt.Sprintf("トーン: %s\n", in.Style.Tone))
	b.WriteString(fmt.Sprintf("語尾パターン: %s\n\n", strings.Join(in.Style.SentenceEndings, ", ")))
	b.WriteString("## 過去記事の締めパターン\n")
	b.WriteString(strings.Join(in.Structure.ClosingPatterns, ", "))
	b.WriteString("\n")
	writeProfileBlock(&b, in.Profile)
	b.WriteString("\n## 記事タイプ別締め方\n")
	b.WriteString("- アナウンスメント: サービスへの誘導、今後の展開\n")
	b.WriteString("- イベントレポート: 次回予告、参加募集\n")
	b.WriteString("- インタビュー: 応募への誘導、SNSフォロー促進\n")
	b.WriteString("- カルチャー: 採用サイトへの誘導、問い合わせ案内\n\n")
	b.WriteString("## 制約\n")
	b.WriteString("- 3〜5文程度\n")
	b.WriteString("- 読後感の良い締めくくり\n")
	b.WriteString("- 適切なCTA（Call To Action）を含める\n")
	b.WriteString("- 文体ガイドに従う")
	return b.String()
}

// BuildStyleCheckSystem renders the style checker's system instruction.
func BuildStyleCheckSystem(in StyleCheckInput) string {
	var b strings.Builder
	b.WriteString("あなたは文体の一貫性を検証する専門家です。\n\n")
	b.WriteString("## タスク\n")
	b.WriteString("生成された記事が文体ガイドに従っているか検証してください。\n\n")
	b.WriteString("## 文体ガイド\n")
	b.WriteString(fmt.Sprintf("語尾パターン: %s\n", strings.Join(in.Style.SentenceEndings, ", ")))
	b.WriteString(fmt.Sprintf("トーン: %s\n", in.Style.Tone))
	b.WriteString(fmt.Sprintf("一人称: %s\n", in.Style.FirstPerson))
	b.WriteString(fmt.Sprintf("特徴的フレーズ: %s\n", strings.Join(in.Style.NotablePhrases, ", ")))
	writeProfileBlock(&b, in.Profile)
	b.WriteString("\n## 検証項目\n")
	b.WriteString("1. 語尾パターンの使用率\n")
	b.WriteString("2. トーンの一貫性\n")
	b.WriteString("3. 一人称の統一\n")
	b.WriteString("4. 特徴的フレーズの使用\n")
	b.WriteString("5. 不自然な表現")
	return b.String()
}

// BuildStyleCheckPrompt renders the draft under verification.
func BuildStyleCheckPrompt(in StyleCheckInput) string {
	var b strings.Builder
	b.WriteString("## 生成された記事\n\n")
	b.WriteString("リード文:\n")
	b.WriteString(in.Lead)
	b.WriteString("\n\n本文:\n")
	b.WriteString(in.Body)
	b.WriteString("\n\n締め:\n")
	b.WriteString(in.Closing)
	b.WriteString("\n\n文体の一貫性を検証してください。")
	return b.String()
}

// BuildRewriteSystem renders the rewriter's system instruction from the
// style rulebook and the style-check verdict.
func BuildRewriteSystem(in RewriteInput) string {
	profile := in.Profile
	if profile == "" {
		profile = "なし"
	}

	var issues []string
	var corrections []string
	if in.Check != nil {
		for _, issue := range in.Check.Issues {
			issues = append(issues, fmt.Sprintf("- %s: %s", issue.Location, issue.Description))
		}
		for _, c := range in.Check.CorrectedSections {
			corrections = append(corrections, fmt.Sprintf("- %s → %s", c.Original, c.Corrected))
		}
	}

	var b strings.Builder
	b.WriteString("あなたはスタイル編集者です。\n")
	b.WriteString("STYLE_PROFILE を満たすように本文を完全リライトしてください。\n\n")
	b.WriteString("## STYLE_PROFILE（文体ルール）\n")
	b.WriteString(profile)
	b.WriteString("\n\n## 文体チェック結果\n")
	b.WriteString(fmt.Sprintf("一貫性スコア: %.1f%%\n", consistencyScore(in.Check)*100))
	b.WriteString(fmt.Sprintf("問題点: %s\n", linesOrNone(issues)))
	b.WriteString(fmt.Sprintf("修正案: %s\n\n", linesOrNone(corrections)))
	b.WriteString("## 指示\n")
	b.WriteString("1. STYLE_PROFILEに一致するよう文体を整える\n")
	b.WriteString("2. 文体チェック結果の修正案を反映\n")
	b.WriteString("3. 内容・事実は変更しない\n")
	b.WriteString("4. 構成（見出し順序）は維持\n")
	b.WriteString("5. 語尾パターン、トーン、一人称を統一")
	return b.String()
}

// BuildRewritePrompt renders the draft text to rewrite.
func BuildRewritePrompt(in RewriteInput) string {
	var b strings.Builder
	b.WriteString("## 元の記事\n")
	b.WriteString(in.Text)
	b.WriteString("\n\n上記の記事をSTYLE_PROFILEに従ってリライトしてください。")
	return b.String()
}

// BuildHallucinationSystem renders the fact checker's system instruction
// with the brief as the ground truth.
func BuildHallucinationSystem(in HallucinationInput) string {
	var b strings.Builder
	b.WriteString("あなたは事実確認の専門家です。\n\n")
	b.WriteString("## タスク\n")
	b.WriteString("生成された記事に、入力素材にない情報（ハルシネーション）が含まれていないか検証してください。\n\n")
	b.WriteString("## 入力素材（これが事実の根拠）\n")
	b.WriteString(fmt.Sprintf("テーマ: %s\n", in.Input.Theme))
	b.WriteString(fmt.Sprintf("キーポイント: %s\n", strings.Join(in.Input.KeyPoints, ", ")))
	b.WriteString(fmt.Sprintf("インタビュー引用: %s\n", formatQuotesBracketed(in.Input.Quotes)))
	b.WriteString(fmt.Sprintf("データ・数値: %s\n", strings.Join(in.Input.DataFacts, ", ")))
	b.WriteString(fmt.Sprintf("登場人物: %s\n\n", formatPeople(in.Input.People)))
	b.WriteString("## 検証ルール\n")
	b.WriteString("1. 記事内の具体的な事実（数値、日付、固有名詞、発言）を抽出\n")
	b.WriteString("2. 各事実が入力素材に存在するか照合\n")
	b.WriteString("3. 存在しない事実を「要確認候補」としてマーク\n")
	b.WriteString("4. 一般的な表現（感想、形容詞など）は許容\n\n")
	b.WriteString("## 重点チェック項目\n")
	b.WriteString("- 数値（年数、金額、人数など）\n")
	b.WriteString("- 固有名詞（製品名、サービス名、人名など）\n")
	b.WriteString("- 具体的な日付・期間\n")
	b.WriteString("- インタビュー発言（「」内）")
	return b.String()
}

// BuildHallucinationPrompt renders the draft text under fact checking.
func BuildHallucinationPrompt(in HallucinationInput) string {
	var b strings.Builder
	b.WriteString("## 生成された記事\n\n")
	b.WriteString("リード文:\n")
	b.WriteString(in.Lead)
	b.WriteString("\n\n本文:\n")
	b.WriteString(in.Body)
	b.WriteString("\n\n締め:\n")
	b.WriteString(in.Closing)
	b.WriteString("\n\nハルシネーションを検出してください。")
	return b.String()
}

// referenceExcerptLimit bounds how much of each reference article is
// quoted inside outline and section prompts.
const referenceExcerptLimit = 400

func writeProfileBlock(b *strings.Builder, profile string) {
	if profile == "" {
		return
	}
	b.WriteString("\n## 文体プロファイル\n")
	b.WriteString(profile)
	b.WriteString("\n")
}

func writeExcerptBlock(b *strings.Builder, excerpts []string) {
	if len(excerpts) == 0 {
		return
	}
	b.WriteString("\n## 文体参考抜粋\n")
	b.WriteString(formatReferences(excerpts))
	b.WriteString("\n")
}

func writeReferenceBlock(b *strings.Builder, references []string) {
	if len(references) == 0 {
		return
	}
	trimmed := make([]string, len(references))
	for i, ref := range references {
		trimmed[i] = truncateRunes(ref, referenceExcerptLimit)
	}
	b.WriteString("\n## 構成・文体の参考（事実の根拠には使わないこと）\n")
	b.WriteString(formatReferences(trimmed))
	b.WriteString("\n")
}

// formatReferences numbers reference texts the way the analyzers expect.
func formatReferences(references []string) string {
	blocks := make([]string, len(references))
	for i, ref := range references {
		blocks[i] = fmt.Sprintf("【参考記事%d】\n%s", i+1, ref)
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// formatQuotes renders quotes as "speaker: quote" pairs.
func formatQuotes(quotes []core.Quote) string {
	parts := make([]string, len(quotes))
	for i, q := range quotes {
		parts[i] = fmt.Sprintf("%s: %s", q.Speaker, q.Quote)
	}
	return strings.Join(parts, ", ")
}

// formatQuotesBracketed renders quotes with the statement in 「」 so the
// model can reuse them verbatim.
func formatQuotesBracketed(quotes []core.Quote) string {
	parts := make([]string, len(quotes))
	for i, q := range quotes {
		parts[i] = fmt.Sprintf("%s: 「%s」", q.Speaker, q.Quote)
	}
	return strings.Join(parts, ", ")
}

// formatPeople renders people as "name(role)" pairs.
func formatPeople(people []core.Person) string {
	parts := make([]string, len(people))
	for i, p := range people {
		parts[i] = fmt.Sprintf("%s(%s)", p.Name, p.Role)
	}
	return strings.Join(parts, ", ")
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "なし"
	}
	return strings.Join(items, ", ")
}

func linesOrNone(lines []string) string {
	if len(lines) == 0 {
		return "なし"
	}
	return "\n" + strings.Join(lines, "\n")
}

func outlineSummary(outline *core.Outline) string {
	if outline == nil {
		return ""
	}
	titles := make([]string, len(outline.Sections))
	for i, s := range outline.Sections {
		titles[i] = s.Title
	}
	return strings.Join(titles, ", ")
}

func audienceOrDefault(in *core.ArticleInput) string {
	if in.Audience != "" {
		return in.Audience
	}
	return DefaultAudience
}

func goalOrDefault(in *core.ArticleInput) string {
	if in.Goal != "" {
		return in.Goal
	}
	return DefaultGoal
}

func desiredLength(in *core.ArticleInput) int {
	if in.DesiredLength > 0 {
		return in.DesiredLength
	}
	return DefaultDesiredLength
}

func consistencyScore(check *core.StyleCheck) float64 {
	if check == nil {
		return 0
	}
	return check.ConsistencyScore
}

// truncateRunes cuts s to at most max runes, marking the cut with an ellipsis.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
