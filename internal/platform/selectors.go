package platform

import "socialbot/internal/resolver"

// Selector chains, curated per platform. Ordering is significant: exact
// text in the active UI languages first, generic structural fallbacks
// last. The catalogue is data so the "what to try first" policy can be
// tuned without touching adapter control flow.

// --- Threads ---

var threadsChains = map[resolver.Intent]resolver.Chain{
	resolver.IntentLoginMarker: {
		{Kind: resolver.KindCSS, Selector: "a[href='/login']"},
		{Kind: resolver.KindTextIs, Selector: "div[role='button']", Text: "Log in"},
		{Kind: resolver.KindTextIs, Selector: "div[role='button']", Text: "登入"},
	},
	resolver.IntentPostContainer: {
		{Kind: resolver.KindCSS, Selector: "div[data-pressable-container='true']"},
		{Kind: resolver.KindCSS, Selector: "div[role='article']"},
	},
	resolver.IntentReplyTrigger: {
		{Kind: resolver.KindCSS, Selector: "div[role='button']:has(svg[aria-label='Reply'])"},
		{Kind: resolver.KindCSS, Selector: "div[role='button']:has(svg[aria-label='回覆'])"},
		{Kind: resolver.KindCSS, Selector: "div[role='button']:has(svg[aria-label='留言'])"},
		{Kind: resolver.KindTextIs, Selector: "div[role='button']", Text: "Comment"},
		{Kind: resolver.KindTextIs, Selector: "div[role='button']", Text: "留言"},
	},
	resolver.IntentComposerInput: {
		{Kind: resolver.KindCSS, Selector: "div[role='textbox'][aria-placeholder*='Reply']"},
		{Kind: resolver.KindCSS, Selector: "div[role='textbox'][aria-placeholder*='回覆']"},
		{Kind: resolver.KindCSS, Selector: "div[role='textbox'][aria-placeholder*='留言']"},
		{Kind: resolver.KindCSS, Selector: "div[role='textbox'][contenteditable='true']"},
	},
	resolver.IntentSubmitControl: {
		{Kind: resolver.KindAriaLabel, Selector: "div[role='button']", Text: "Post"},
		{Kind: resolver.KindAriaLabel, Selector: "div[role='button']", Text: "Send"},
		{Kind: resolver.KindAriaLabel, Selector: "div[role='button']", Text: "發佈"},
		{Kind: resolver.KindAriaLabel, Selector: "div[role='button']", Text: "發布"},
		{Kind: resolver.KindAriaLabel, Selector: "div[role='button']", Text: "發送"},
		// Last resort: any button wrapping an icon inside the scoped
		// container; safe only because the scope is already narrowed.
		{Kind: resolver.KindCSS, Selector: "div[role='button']:has(svg)"},
	},
	resolver.IntentModalSurface: {
		{Kind: resolver.KindCSS, Selector: "div[role='dialog']"},
	},
	// The "new thread" composer: the known misfire surface when a generic
	// trigger is ambiguous.
	resolver.IntentComposeMisfire: {
		{Kind: resolver.KindTextIs, Selector: "div[role='dialog'] h1", Text: "New thread"},
		{Kind: resolver.KindTextIs, Selector: "div[role='dialog'] h1", Text: "新串文"},
		{Kind: resolver.KindTextContains, Selector: "div[role='dialog'] span", Text: "新串文"},
	},
	resolver.IntentModalClose: {
		{Kind: resolver.KindCSS, Selector: "div[role='dialog'] div[role='button']:has(svg[aria-label='Close'])"},
		{Kind: resolver.KindCSS, Selector: "div[role='dialog'] div[role='button']:has(svg[aria-label='關閉'])"},
	},
	resolver.IntentDiscardConfirm: {
		{Kind: resolver.KindTextIs, Selector: "div[role='button']", Text: "Discard"},
		{Kind: resolver.KindTextIs, Selector: "div[role='button']", Text: "捨棄"},
	},
}

// --- Instagram ---

var instagramChains = map[resolver.Intent]resolver.Chain{
	resolver.IntentLoginMarker: {
		{Kind: resolver.KindCSS, Selector: "svg[aria-label='Home']"},
		{Kind: resolver.KindCSS, Selector: "svg[aria-label='首頁']"},
	},
	resolver.IntentPostContainer: {
		{Kind: resolver.KindCSS, Selector: "article"},
		{Kind: resolver.KindCSS, Selector: "div[role='article']"},
	},
	resolver.IntentReplyTrigger: {
		{Kind: resolver.KindCSS, Selector: "svg[aria-label*='Comment']"},
		{Kind: resolver.KindCSS, Selector: "svg[aria-label*='留言']"},
		{Kind: resolver.KindCSS, Selector: "svg[aria-label*='Reply']"},
	},
	resolver.IntentComposerInput: {
		{Kind: resolver.KindCSS, Selector: "textarea"},
		{Kind: resolver.KindCSS, Selector: "div[contenteditable='true'][role='textbox']"},
	},
	resolver.IntentSubmitControl: {
		{Kind: resolver.KindTextIs, Selector: "div[role='button']", Text: "Post"},
		{Kind: resolver.KindTextIs, Selector: "div[role='button']", Text: "發佈"},
		{Kind: resolver.KindTextIs, Selector: "div[role='button']", Text: "發布"},
		{Kind: resolver.KindTextIs, Selector: "button", Text: "Post"},
		{Kind: resolver.KindTextIs, Selector: "button", Text: "發佈"},
		{Kind: resolver.KindTextContains, Selector: "span", Text: "Post"},
		{Kind: resolver.KindTextContains, Selector: "span", Text: "發佈"},
	},
	resolver.IntentModalSurface: {
		{Kind: resolver.KindCSS, Selector: "div[role='dialog']"},
	},
}

// --- Facebook ---

var facebookChains = map[resolver.Intent]resolver.Chain{
	resolver.IntentLoginMarker: {
		{Kind: resolver.KindAriaLabel, Selector: "*", Text: "Home"},
		{Kind: resolver.KindAriaLabel, Selector: "*", Text: "首頁"},
		{Kind: resolver.KindCSS, Selector: "div[role='feed']"},
		{Kind: resolver.KindCSS, Selector: "div[role='navigation']"},
	},
	resolver.IntentPostContainer: {
		{Kind: resolver.KindCSS, Selector: "div[role='article']"},
	},
	resolver.IntentContentText: {
		{Kind: resolver.KindCSS, Selector: "div[data-ad-preview='message'] span[dir='auto']"},
		{Kind: resolver.KindCSS, Selector: "div[dir='auto']"},
		{Kind: resolver.KindCSS, Selector: "span[dir='auto']"},
	},
	// Exact text first: "Comment" must never match "Block this comment".
	resolver.IntentReplyTrigger: {
		{Kind: resolver.KindTextIs, Selector: "div[role='button']", Text: "Comment"},
		{Kind: resolver.KindTextIs, Selector: "div[role='button']", Text: "留言"},
		{Kind: resolver.KindTextIs, Selector: "div[role='button']", Text: "回應"},
		{Kind: resolver.KindTextIs, Selector: "div[role='button']", Text: "評論"},
		{Kind: resolver.KindTextIs, Selector: "span", Text: "Comment"},
		{Kind: resolver.KindTextIs, Selector: "span", Text: "留言"},
		{Kind: resolver.KindTextIs, Selector: "span", Text: "寫留言"},
	},
	resolver.IntentComposerInput: {
		{Kind: resolver.KindCSS, Selector: "div[role='textbox'][contenteditable='true']"},
		{Kind: resolver.KindCSS, Selector: "div[aria-label*='留言']"},
		{Kind: resolver.KindCSS, Selector: "div[aria-label*='Comment']"},
		{Kind: resolver.KindCSS, Selector: "div[aria-label*='Write']"},
	},
	resolver.IntentSubmitControl: {
		{Kind: resolver.KindAriaLabel, Selector: "div", Text: "Post"},
		{Kind: resolver.KindAriaLabel, Selector: "div", Text: "發佈"},
		{Kind: resolver.KindAriaLabel, Selector: "div", Text: "留言"},
	},
	resolver.IntentModalSurface: {
		{Kind: resolver.KindCSS, Selector: "div[role='dialog']"},
	},
}

// --- X ---

var xChains = map[resolver.Intent]resolver.Chain{
	resolver.IntentLoginMarker: {
		{Kind: resolver.KindCSS, Selector: "[data-testid='AppTabBar_Home_Link']"},
		{Kind: resolver.KindAriaLabel, Selector: "*", Text: "Home"},
		{Kind: resolver.KindAriaLabel, Selector: "*", Text: "首頁"},
	},
	resolver.IntentPostContainer: {
		{Kind: resolver.KindCSS, Selector: "article[data-testid='tweet']"},
		{Kind: resolver.KindCSS, Selector: "article[role='article']"},
	},
	resolver.IntentContentText: {
		{Kind: resolver.KindCSS, Selector: "[data-testid='tweetText']"},
	},
	resolver.IntentReplyTrigger: {
		{Kind: resolver.KindCSS, Selector: "[data-testid='reply']"},
	},
	resolver.IntentComposerInput: {
		{Kind: resolver.KindCSS, Selector: "[data-testid='tweetTextarea_0']"},
	},
	resolver.IntentSubmitControl: {
		{Kind: resolver.KindCSS, Selector: "[data-testid='tweetButton']"},
	},
	resolver.IntentModalSurface: {
		{Kind: resolver.KindCSS, Selector: "div[role='dialog']"},
	},
}
